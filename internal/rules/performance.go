package rules

import (
	"github.com/scan-io-git/convex-doctor/internal/facts"
)

func performanceRules() []Rule {
	return []Rule{
		&unboundedCollect{base{
			id: "performance/unbounded-collect", category: Performance, severity: SeverityWarning,
			description: "Query collected without an index or limit",
			help:        "Use .withIndex(...) with .take(n) or .paginate(...) so reads stay bounded as the table grows.",
		}},
		&dbFilter{base{
			id: "performance/db-filter", category: Performance, severity: SeverityWarning,
			description: ".filter() on a database query",
			help:        ".filter() scans every document; define an index and use .withIndex(...) instead.",
		}},
		&callsInLoop{base{
			id: "performance/calls-in-loop", category: Performance, severity: SeverityWarning,
			description: "Database or function call inside a loop",
			help:        "Batch the work with Promise.all or move it into a single query or mutation.",
		}},
		&largeDocumentWrite{base{
			id: "performance/large-document-write", category: Performance, severity: SeverityWarning,
			description: "Oversized inline document written",
			help:        "Split large documents into related tables; documents are read and written as a whole.",
		}},
		&collectThenFilter{base{
			id: "performance/collect-then-filter", category: Performance, severity: SeverityWarning,
			description: "Collected rows filtered in JavaScript",
			help:        "Filter with an index before collecting instead of loading the whole table.",
		}},
		&runCallInTransaction{base{
			id: "performance/run-call-in-transaction", category: Performance, severity: SeverityWarning,
			description: "ctx.runQuery/ctx.runMutation inside a query or mutation",
			help:        "Call the shared helper function directly; ctx.run* inside a transaction adds overhead.",
		}},
	}
}

type unboundedCollect struct{ base }

func (r *unboundedCollect) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.UnboundedCollects, func(s facts.CallSite) string {
		if s.Detail == "" {
			return "Unbounded .collect() on a database query"
		}
		return "Unbounded .collect() on table \"" + s.Detail + "\""
	})
}

type dbFilter struct{ base }

func (r *dbFilter) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.FilterCalls, func(s facts.CallSite) string {
		if s.Detail == "" {
			return ".filter() scans the whole query"
		}
		return ".filter() scans table \"" + s.Detail + "\""
	})
}

type callsInLoop struct{ base }

func (r *callsInLoop) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.LoopCalls, func(s facts.CallSite) string {
		return s.Detail + " called inside a loop"
	})
}

type largeDocumentWrite struct{ base }

func (r *largeDocumentWrite) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.LargeWrites, func(s facts.CallSite) string {
		return s.Detail + " writes an oversized inline document"
	})
}

type collectThenFilter struct{ base }

func (r *collectThenFilter) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.CollectThenFilter, func(s facts.CallSite) string {
		return "\"" + s.Detail + "\" is collected from the database and then filtered in memory"
	})
}

type runCallInTransaction struct{ base }

func (r *runCallInTransaction) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if call.Chain != "ctx.runQuery" && call.Chain != "ctx.runMutation" {
			continue
		}
		if call.EnclosingKind == nil || !(call.EnclosingKind.IsQueryLike() || call.EnclosingKind.IsMutationLike()) {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "%s inside %s %q", call.Chain, *call.EnclosingKind, call.EnclosingFunction))
	}
	return out
}

// sites converts call sites one to one into diagnostics.
func (b base) sites(fa *facts.FileAnalysis, sites []facts.CallSite, message func(facts.CallSite) string) []Diagnostic {
	var out []Diagnostic
	for _, s := range sites {
		out = append(out, b.at(fa.Path, s.Line, s.Column, "%s", message(s)))
	}
	return out
}
