package rules

import (
	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/project"
)

func clientRules() []Rule {
	return []Rule{
		&mutationInRender{base{
			id: "client/mutation-in-render", category: ClientSide, severity: SeverityError,
			description: "Mutation or action called during render",
			help:        "Call mutations from event handlers or effects; calling them while rendering fires on every render.",
		}},
		&unhandledLoading{base{
			id: "client/unhandled-loading", category: ClientSide, severity: SeverityWarning,
			description: "useQuery result used without a loading check",
			help:        "useQuery returns undefined while loading; check for undefined before using the result.",
		}},
		&actionInsteadOfMutation{base{
			id: "client/action-instead-of-mutation", category: ClientSide, severity: SeverityInfo,
			description: "useAction for work a mutation could do",
			help:        "Mutations are transactional and retried automatically; prefer them when no external call is made.",
		}},
		&missingProvider{base{
			id: "client/missing-provider", category: ClientSide, severity: SeverityWarning,
			description: "Convex hooks used without ConvexProvider",
			help:        "Wrap the app in <ConvexProvider client={new ConvexReactClient(url)}>.",
		}},
	}
}

type mutationInRender struct{ base }

func (r *mutationInRender) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, h := range fa.Hooks {
		if h.CalledInRender {
			out = append(out, r.at(fa.Path, h.Line, h.Column, "%q from %s is called during render", h.BoundName, h.Hook))
		}
	}
	return out
}

type unhandledLoading struct{ base }

func (r *unhandledLoading) CheckFile(fa *facts.FileAnalysis) []Diagnostic {
	var out []Diagnostic
	for _, h := range fa.Hooks {
		if h.Hook != "useQuery" || h.BoundName == "" || !h.Dereferenced || h.LoadingHandled {
			continue
		}
		out = append(out, r.at(fa.Path, h.Line, h.Column, "%q is used without handling the loading state", h.BoundName))
	}
	return out
}

// actionInsteadOfMutation needs api reference resolution to see what the action does.
type actionInsteadOfMutation struct{ base }

type missingProvider struct{ base }

func (r *missingProvider) CheckProject(pc *project.Context) []Diagnostic {
	if len(pc.HookSites) == 0 || pc.ProviderImported {
		return nil
	}
	first := pc.HookSites[0]
	return []Diagnostic{r.at(first.File, first.Line, first.Column, "%s is used but ConvexProvider is never imported", first.Hook)}
}
