package rules

import (
	"sort"

	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/project"
)

const (
	maxSchemaNesting   = 3
	maxIndexesPerTable = 16
	maxOptionalFields  = 10
)

func schemaRules() []Rule {
	return []Rule{
		&deepNesting{base{
			id: "schema/deep-nesting", category: Schema, severity: SeverityWarning,
			description: "Deeply nested validators",
			help:        "Flatten nested objects into separate tables linked by v.id() references.",
		}},
		&redundantIndex{base{
			id: "schema/redundant-index", category: Schema, severity: SeverityWarning,
			description: "Index that is a prefix of another index on the same table",
			help:        "An index on [a, b] also serves queries on [a]; drop the shorter one.",
		}},
		&tooManyIndexes{base{
			id: "schema/too-many-indexes", category: Schema, severity: SeverityWarning,
			description: "Table with too many indexes",
			help:        "Every index slows down writes; remove the ones no query uses.",
		}},
		&searchIndexNoFilter{base{
			id: "schema/search-index-no-filter", category: Schema, severity: SeverityInfo,
			description: "Search index without filter fields",
			help:        "Add filterFields so search queries can be narrowed without scanning results.",
		}},
		&optionalFields{base{
			id: "schema/optional-fields", category: Schema, severity: SeverityInfo,
			description: "Many optional fields",
			help:        "Every optional field needs an undefined check at each read; consider splitting the table or using defaults.",
		}},
		&missingFilterIndex{base{
			id: "schema/missing-filter-index", category: Schema, severity: SeverityWarning,
			description: "Filtered field without a matching index",
			help:        "Add an index whose first field is the filtered field and query it with .withIndex(...).",
		}},
		&unindexedReference{base{
			id: "schema/unindexed-reference", category: Schema, severity: SeverityInfo,
			description: "v.id() reference without an index",
			help:        "Index reference fields so lookups by the referenced document do not scan the table.",
		}},
	}
}

type deepNesting struct{ base }

func (r *deepNesting) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if fa.SchemaNestingDepth <= maxSchemaNesting {
		return nil
	}
	return []Diagnostic{r.atFile(fa.Path, "Validators nest %d levels deep (limit %d)", fa.SchemaNestingDepth, maxSchemaNesting)}
}

type redundantIndex struct{ base }

// CheckProject reports both indexes of every pair where one field list is a
// prefix of the other on the same table.
func (r *redundantIndex) CheckProject(pc *project.Context) []Diagnostic {
	byTable := make(map[string][]facts.IndexDef)
	var keys []string
	for _, idx := range pc.Indexes {
		if _, ok := byTable[idx.TableKey]; !ok {
			keys = append(keys, idx.TableKey)
		}
		byTable[idx.TableKey] = append(byTable[idx.TableKey], idx)
	}
	sort.Strings(keys)

	var out []Diagnostic
	for _, key := range keys {
		indexes := byTable[key]
		for i := 0; i < len(indexes); i++ {
			for j := i + 1; j < len(indexes); j++ {
				a, b := indexes[i], indexes[j]
				if !isFieldPrefix(a.Fields, b.Fields) && !isFieldPrefix(b.Fields, a.Fields) {
					continue
				}
				out = append(out,
					r.at(a.File, a.Line, 1, "Index %q overlaps index %q on the same table", a.Name, b.Name),
					r.at(b.File, b.Line, 1, "Index %q overlaps index %q on the same table", b.Name, a.Name),
				)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Message < out[j].Message
	})
	return out
}

func isFieldPrefix(short, long []string) bool {
	if len(short) == 0 || len(short) > len(long) {
		return false
	}
	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}
	return true
}

type tooManyIndexes struct{ base }

func (r *tooManyIndexes) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	counts := make(map[string]int)
	for _, idx := range fa.Indexes {
		counts[idx.TableKey]++
	}
	var out []Diagnostic
	for _, table := range fa.Tables {
		if n := counts[table.Key]; n > maxIndexesPerTable {
			out = append(out, r.at(fa.Path, table.Line, 1, "Table %s declares %d indexes (limit %d)", tableLabel(table), n, maxIndexesPerTable))
		}
	}
	return out
}

func tableLabel(t facts.TableDef) string {
	if t.Name == "" {
		return "<anonymous>"
	}
	return "\"" + t.Name + "\""
}

type searchIndexNoFilter struct{ base }

func (r *searchIndexNoFilter) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, idx := range fa.SearchIndexes {
		if !idx.HasFilterFields {
			out = append(out, r.at(fa.Path, idx.Line, 1, "Search index %q has no filterFields", idx.Name))
		}
	}
	return out
}

type optionalFields struct{ base }

func (r *optionalFields) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if fa.OptionalFieldCount <= maxOptionalFields {
		return nil
	}
	return []Diagnostic{r.atFile(fa.Path, "%d optional fields declared (more than %d)", fa.OptionalFieldCount, maxOptionalFields)}
}

type missingFilterIndex struct{ base }

func (r *missingFilterIndex) CheckProject(pc *project.Context) []Diagnostic {
	var out []Diagnostic
	for _, usage := range pc.FilterFields {
		if usage.Table == "" || !pc.HasTable(usage.Table) {
			continue
		}
		if leadingFieldIndexed(pc.IndexesOn(usage.Table), usage.Field) {
			continue
		}
		out = append(out, r.at(usage.File, usage.Line, usage.Column, "Filter on %s.%s has no index starting with %q", usage.Table, usage.Field, usage.Field))
	}
	return out
}

func leadingFieldIndexed(indexes []facts.IndexDef, field string) bool {
	for _, idx := range indexes {
		if len(idx.Fields) > 0 && idx.Fields[0] == field {
			return true
		}
	}
	return false
}

type unindexedReference struct{ base }

func (r *unindexedReference) CheckProject(pc *project.Context) []Diagnostic {
	var out []Diagnostic
	for _, f := range pc.IDFields {
		var indexes []facts.IndexDef
		for _, idx := range pc.Indexes {
			if idx.TableKey == f.TableKey {
				indexes = append(indexes, idx)
			}
		}
		if leadingFieldIndexed(indexes, f.Field) {
			continue
		}
		out = append(out, r.at(f.File, f.Line, 1, "Reference field %q to table %q has no index", f.Field, f.RefTable))
	}
	return out
}
