package rules

import (
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

func correctnessRules() []Rule {
	return []Rule{
		&unawaitedCall{base{
			id: "correctness/unawaited-call", category: Correctness, severity: SeverityError,
			description: "Promise-returning ctx call that is never awaited",
			help:        "Await the call (or return/assign its promise); floating promises may never run or may fail silently.",
		}},
		&dbInAction{base{
			id: "correctness/db-in-action", category: Correctness, severity: SeverityError,
			description: "ctx.db used inside an action",
			help:        "Actions have no database access; move the reads and writes into a query or mutation and call it with ctx.runQuery/ctx.runMutation.",
		}},
		&queryMutationInNodeRuntime{base{
			id: "correctness/query-mutation-in-node-runtime", category: Correctness, severity: SeverityError,
			description: "Query or mutation defined in a \"use node\" file",
			help:        "Only actions may run in the Node.js runtime; move queries and mutations to a file without \"use node\".",
		}},
		&deprecatedAPI{base{
			id: "correctness/deprecated-api", category: Correctness, severity: SeverityWarning,
			description: "Deprecated Convex API",
			help:        "Switch to the suggested replacement API.",
		}},
		&nonDeterministicQuery{base{
			id: "correctness/non-deterministic-query", category: Correctness, severity: SeverityWarning,
			description: "Non-deterministic value read inside a query",
			help:        "Queries must be deterministic to be cached; pass the time in as an argument or compute it in a mutation or action.",
		}},
		&legacyFunctionSyntax{base{
			id: "correctness/legacy-function-syntax", category: Correctness, severity: SeverityWarning,
			description: "Function defined with a bare handler",
			help:        "Use the object syntax `{ args, returns, handler }` so arguments are validated.",
		}},
		&discardedSchedulerID{base{
			id: "correctness/discarded-scheduler-id", category: Correctness, severity: SeverityWarning,
			description: "Scheduled job id discarded in a file that cancels jobs",
			help:        "Store the id returned by ctx.scheduler.runAfter/runAt so the job can be cancelled later.",
		}},
	}
}

type unawaitedCall struct{ base }

func (r *unawaitedCall) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if !call.Awaitable || call.Awaited || call.Returned || call.AssignedTo != "" {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "%s is not awaited", call.Chain))
	}
	return out
}

type dbInAction struct{ base }

func (r *dbInAction) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if !strings.HasPrefix(call.Chain, "ctx.db.") || call.EnclosingKind == nil || !call.EnclosingKind.IsActionLike() {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "%s used inside %s %q", call.Chain, *call.EnclosingKind, call.EnclosingFunction))
	}
	return out
}

type queryMutationInNodeRuntime struct{ base }

func (r *queryMutationInNodeRuntime) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if !fa.UseNode {
		return nil
	}
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if fn.Kind.IsQueryLike() || fn.Kind.IsMutationLike() {
			out = append(out, r.at(fa.Path, fn.Line, fn.Column, "%s %q is defined in a \"use node\" file", fn.Kind, fn.Name))
		}
	}
	return out
}

type deprecatedAPI struct{ base }

func (r *deprecatedAPI) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.DeprecatedCalls, func(s facts.CallSite) string {
		return "Deprecated API: " + s.Detail
	})
}

type nonDeterministicQuery struct{ base }

func (r *nonDeterministicQuery) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, s := range fa.NonDeterministic {
		if s.Kind == nil || !s.Kind.IsQueryLike() {
			continue
		}
		out = append(out, r.at(fa.Path, s.Line, s.Column, "%s inside %s %q", s.Detail, *s.Kind, s.Function))
	}
	return out
}

type legacyFunctionSyntax struct{ base }

func (r *legacyFunctionSyntax) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	return r.sites(fa, fa.LegacyFunctions, func(s facts.CallSite) string {
		return s.Detail + " \"" + s.Function + "\" uses the bare handler syntax"
	})
}

type discardedSchedulerID struct{ base }

func (r *discardedSchedulerID) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	cancels := false
	for _, call := range fa.CtxCalls {
		if call.Chain == "ctx.scheduler.cancel" {
			cancels = true
			break
		}
	}
	if !cancels {
		return nil
	}
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if call.Chain != "ctx.scheduler.runAfter" && call.Chain != "ctx.scheduler.runAt" {
			continue
		}
		if call.AssignedTo != "" || call.Returned {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "Id returned by %s is discarded", call.Chain))
	}
	return out
}
