package extractor

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

func (w *walker) tableKey(def *sitter.Node) string {
	return fmt.Sprintf("%s#%d", w.path, def.StartByte())
}

// originTable walks back through a builder chain such as
// defineTable({...}).index(...).index(...) to the defineTable call.
func originTable(call *sitter.Node, src []byte) *sitter.Node {
	n := call
	for n != nil {
		for n.Type() != "call_expression" {
			if !wrapperTypes[n.Type()] || n.NamedChildCount() == 0 || n.NamedChild(0) == nil {
				return nil
			}
			n = n.NamedChild(0)
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		switch fn.Type() {
		case "identifier":
			if fn.Content(src) == "defineTable" {
				return n
			}
			return nil
		case "member_expression":
			n = fn.ChildByFieldName("object")
		default:
			return nil
		}
	}
	return nil
}

// nameTable remembers the name a defineTable call is bound to, before its
// subtree is visited.
func (w *walker) nameTable(value *sitter.Node, name string) {
	if value == nil || name == "" {
		return
	}
	if def := originTable(value, w.src); def != nil {
		w.tableNames[def.StartByte()] = name
	}
}

func (w *walker) defineTable(n *sitter.Node) {
	key := w.tableKey(n)
	name := w.tableNames[n.StartByte()]
	line, _ := w.position(n)
	w.fa.Tables = append(w.fa.Tables, facts.TableDef{Key: key, Name: name, Line: line})

	fields := argument(n, 0)
	if fields != nil && fields.Type() == "call_expression" && chainString(fields.ChildByFieldName("function"), w.src) == "v.object" {
		fields = argument(fields, 0)
	}
	for _, p := range objectProperties(fields, w.src) {
		ref, ok := w.idReference(p.value)
		if !ok {
			continue
		}
		fieldLine, _ := w.position(p.node)
		w.fa.IDFields = append(w.fa.IDFields, facts.IDField{
			TableKey:  key,
			TableName: name,
			Field:     p.key,
			RefTable:  ref,
			File:      w.path,
			Line:      fieldLine,
		})
	}
}

// idReference returns the referenced table of v.id("t"), also under v.optional.
func (w *walker) idReference(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "call_expression" {
		return "", false
	}
	switch chainString(n.ChildByFieldName("function"), w.src) {
	case "v.id":
		return stringValue(argument(n, 0), w.src)
	case "v.optional":
		return w.idReference(argument(n, 0))
	}
	return "", false
}

func (w *walker) indexDefinition(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	def := originTable(callee.ChildByFieldName("object"), w.src)
	if def == nil {
		return
	}
	name, ok := stringValue(argument(n, 0), w.src)
	if !ok {
		return
	}
	fields, ok := stringArray(argument(n, 1), w.src)
	if !ok {
		return
	}
	line, _ := w.position(n)
	w.fa.Indexes = append(w.fa.Indexes, facts.IndexDef{
		TableKey:  w.tableKey(def),
		TableName: w.tableNames[def.StartByte()],
		Name:      name,
		Fields:    fields,
		File:      w.path,
		Line:      line,
	})
}

func (w *walker) searchIndexDefinition(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	def := originTable(callee.ChildByFieldName("object"), w.src)
	if def == nil {
		return
	}
	name, ok := stringValue(argument(n, 0), w.src)
	if !ok {
		return
	}
	props := objectProperties(argument(n, 1), w.src)
	sf, ok := lookupProperty(props, "searchField")
	if !ok {
		return
	}
	searchField, ok := stringValue(sf.value, w.src)
	if !ok {
		return
	}
	var filterFields []string
	if ff, ok := lookupProperty(props, "filterFields"); ok {
		if filterFields, ok = stringArray(ff.value, w.src); !ok {
			return
		}
	}
	line, _ := w.position(n)
	w.fa.SearchIndexes = append(w.fa.SearchIndexes, facts.SearchIndexDef{
		TableKey:        w.tableKey(def),
		TableName:       w.tableNames[def.StartByte()],
		Name:            name,
		SearchField:     searchField,
		FilterFields:    filterFields,
		HasFilterFields: len(filterFields) > 0,
		File:            w.path,
		Line:            line,
	})
}
