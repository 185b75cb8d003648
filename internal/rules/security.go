package rules

import (
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

func securityRules() []Rule {
	return []Rule{
		&missingArgsValidator{base{
			id: "security/missing-args-validator", category: Security, severity: SeverityError,
			description: "Public function without an args validator",
			help:        "Declare `args: { ... }` with validators from convex/values so clients cannot send arbitrary input.",
		}},
		&missingReturnsValidator{base{
			id: "security/missing-returns-validator", category: Security, severity: SeverityWarning,
			description: "Public function without a returns validator",
			help:        "Declare `returns: v...` so the function cannot leak fields it was not meant to return.",
		}},
		&missingAuthCheck{base{
			id: "security/missing-auth-check", category: Security, severity: SeverityWarning,
			description: "Public function that never checks ctx.auth",
			help:        "Call `ctx.auth.getUserIdentity()` and reject anonymous callers, or mark intentionally public endpoints with an `// @public` comment.",
		}},
		&hardcodedSecret{base{
			id: "security/hardcoded-secret", category: Security, severity: SeverityError,
			description: "Credential literal in source code",
			help:        "Move the value to a Convex environment variable and read it with `process.env`.",
		}},
		&publicFunctionRef{base{
			id: "security/public-function-ref", category: Security, severity: SeverityWarning,
			description: "Server-side call through the public api object",
			help:        "Reference server-to-server targets through `internal.*` and define them with internalQuery/internalMutation/internalAction.",
		}},
		&rawArgsPatch{base{
			id: "security/raw-args-patch", category: Security, severity: SeverityWarning,
			description: "Document patched with the raw function arguments",
			help:        "Pick the fields to update explicitly instead of passing `args` to ctx.db.patch.",
		}},
		&httpMissingCORS{base{
			id: "security/http-missing-cors", category: Security, severity: SeverityWarning,
			description: "HTTP router without an OPTIONS route",
			help:        "Register OPTIONS handlers that answer CORS preflight requests for browser clients.",
		}},
		&spoofableIdentityArg{base{
			id: "security/spoofable-identity-arg", category: Security, severity: SeverityWarning,
			description: "Caller identity taken from arguments",
			help:        "Derive the user from `ctx.auth.getUserIdentity()` instead of trusting a client-supplied id.",
		}},
		&anyValidator{base{
			id: "security/any-validator", category: Security, severity: SeverityWarning,
			description: "v.any() used in an args validator",
			help:        "Replace v.any() with a precise validator.",
		}},
	}
}

type missingArgsValidator struct{ base }

func (r *missingArgsValidator) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if !fn.IsPublic() || fn.Kind == facts.HTTPAction || fn.HasArgsValidator {
			continue
		}
		out = append(out, r.at(fa.Path, fn.Line, fn.Column, "Public %s %q has no args validator", fn.Kind, fn.Name))
	}
	return out
}

type missingReturnsValidator struct{ base }

func (r *missingReturnsValidator) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if !fn.IsPublic() || fn.Kind == facts.HTTPAction || fn.HasReturnsValidator {
			continue
		}
		out = append(out, r.at(fa.Path, fn.Line, fn.Column, "Public %s %q has no returns validator", fn.Kind, fn.Name))
	}
	return out
}

type missingAuthCheck struct{ base }

func (r *missingAuthCheck) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if !fn.IsPublic() || fn.Kind == facts.HTTPAction {
			continue
		}
		if fn.HasAuthCheck || fn.HasTrustedCheck || fn.MarkedPublic {
			continue
		}
		out = append(out, r.at(fa.Path, fn.Line, fn.Column, "Public %s %q does not check authentication", fn.Kind, fn.Name))
	}
	return out
}

type hardcodedSecret struct{ base }

func (r *hardcodedSecret) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, s := range fa.Secrets {
		out = append(out, r.at(fa.Path, s.Line, s.Column, "String literal looks like a credential (%s...)", s.Detail))
	}
	return out
}

// serverCalls are the ctx methods that take a function reference as first argument.
var serverCalls = map[string]bool{
	"ctx.runQuery":           true,
	"ctx.runMutation":        true,
	"ctx.runAction":          true,
	"ctx.scheduler.runAfter": true,
	"ctx.scheduler.runAt":    true,
}

type publicFunctionRef struct{ base }

func (r *publicFunctionRef) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, call := range fa.CtxCalls {
		if !serverCalls[call.Chain] || !strings.HasPrefix(call.FirstArgChain, "api.") {
			continue
		}
		out = append(out, r.at(fa.Path, call.Line, call.Column, "%s targets public function %s", call.Chain, call.FirstArgChain))
	}
	return out
}

type rawArgsPatch struct{ base }

func (r *rawArgsPatch) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, s := range fa.RawPatches {
		out = append(out, r.at(fa.Path, s.Line, s.Column, "ctx.db.patch receives the raw function arguments"))
	}
	return out
}

type httpMissingCORS struct{ base }

func (r *httpMissingCORS) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	if !fa.IsHTTPRouter || len(fa.HTTPRoutes) == 0 {
		return nil
	}
	for _, route := range fa.HTTPRoutes {
		if route.Method == "OPTIONS" {
			return nil
		}
	}
	first := fa.HTTPRoutes[0]
	return []Diagnostic{r.at(fa.Path, first.Line, first.Column, "HTTP router registers %d route(s) but no OPTIONS route", len(fa.HTTPRoutes))}
}

// identityArgs are argument names that usually carry the caller identity.
var identityArgs = map[string]bool{
	"userid":    true,
	"user_id":   true,
	"ownerid":   true,
	"authorid":  true,
	"creatorid": true,
	"senderid":  true,
}

type spoofableIdentityArg struct{ base }

func (r *spoofableIdentityArg) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if !fn.IsPublic() || fn.HasAuthCheck || fn.HasTrustedCheck {
			continue
		}
		for _, arg := range fn.ArgNames {
			if identityArgs[strings.ToLower(arg)] {
				out = append(out, r.at(fa.Path, fn.Line, fn.Column, "Public %s %q trusts client-supplied %q", fn.Kind, fn.Name, arg))
			}
		}
	}
	return out
}

type anyValidator struct{ base }

func (r *anyValidator) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, fn := range fa.Functions {
		if fn.HasAnyValidator {
			out = append(out, r.at(fa.Path, fn.Line, fn.Column, "%s %q accepts v.any() arguments", fn.Kind, fn.Name))
		}
	}
	return out
}
