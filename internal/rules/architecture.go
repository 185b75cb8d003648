package rules

import (
	"github.com/scan-io-git/convex-doctor/internal/facts"
)

const (
	maxHandlerLines   = 50
	duplicatedAuthMin = 3
)

func architectureRules() []Rule {
	return []Rule{
		&largeHandler{base{
			id: "architecture/large-handler", category: Architecture, severity: SeverityWarning,
			description: "Large handler in a file without helpers",
			help:        "Extract the handler logic into plain helper functions that take ctx.",
		}},
		&duplicatedAuth{base{
			id: "architecture/duplicated-auth", category: Architecture, severity: SeverityWarning,
			description: "Auth logic repeated across functions",
			help:        "Move the identity lookup into one helper (or custom function wrapper) and reuse it.",
		}},
		&mixedVisibility{base{
			id: "architecture/mixed-visibility", category: Architecture, severity: SeverityInfo,
			description: "Public and internal functions in one file",
			help:        "Keep internal functions in separate modules so the public API surface is easy to audit.",
		}},
		&actionChain{base{
			id: "architecture/action-chain", category: Architecture, severity: SeverityWarning,
			description: "Action calling another action",
			help:        "Call a plain helper function instead; each ctx.runAction starts a separate function invocation.",
		}},
		&circularImports{base{
			id: "architecture/circular-imports", category: Architecture, severity: SeverityInfo,
			description: "Circular imports between Convex modules",
			help:        "Break the cycle by moving shared code into a module both sides import.",
		}},
	}
}

type largeHandler struct{ base }

func (r *largeHandler) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if fa.HelperFunctionCount > 0 {
		return nil
	}
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if fn.HandlerLines > maxHandlerLines {
			out = append(out, r.at(fa.Path, fn.Line, fn.Column, "Handler of %q spans %d lines (limit %d)", fn.Name, fn.HandlerLines, maxHandlerLines))
		}
	}
	return out
}

type duplicatedAuth struct{ base }

func (r *duplicatedAuth) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var withAuth []facts.ConvexFunction
	for _, fn := range fa.Functions {
		if fn.HasAuthCheck {
			withAuth = append(withAuth, fn)
		}
	}
	if len(withAuth) < duplicatedAuthMin {
		return nil
	}
	first := withAuth[0]
	return []Diagnostic{r.at(fa.Path, first.Line, first.Column, "%d functions repeat inline ctx.auth checks", len(withAuth))}
}

type mixedVisibility struct{ base }

func (r *mixedVisibility) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if !fa.HasPublicFunctions() || !fa.HasInternalFunctions() {
		return nil
	}
	for _, fn := range fa.Functions {
		if !fn.IsPublic() {
			return []Diagnostic{r.at(fa.Path, fn.Line, fn.Column, "File exports both public and internal functions")}
		}
	}
	return nil
}

type actionChain struct{ base }

func (r *actionChain) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if call.Chain != "ctx.runAction" || call.EnclosingKind == nil || !call.EnclosingKind.IsActionLike() {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "%s %q calls ctx.runAction", *call.EnclosingKind, call.EnclosingFunction))
	}
	return out
}

// circularImports needs a module import graph, which is not built yet.
type circularImports struct{ base }
