package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

var clientHooks = map[string]bool{
	"useQuery":          true,
	"useMutation":       true,
	"useAction":         true,
	"usePaginatedQuery": true,
}

func (w *walker) importStatement(n *sitter.Node) {
	source, _ := stringValue(n.ChildByFieldName("source"), w.src)
	imp := facts.Import{Source: source}
	imp.Line, _ = w.position(n)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		imp.Names = append(imp.Names, importNames(clause, w.src)...)
	}
	w.fa.Imports = append(w.fa.Imports, imp)

	if strings.HasPrefix(source, "convex/react") {
		w.fa.IsClient = true
	}
	for _, name := range imp.Names {
		if strings.HasPrefix(name, "ConvexProvider") || name == "ConvexReactClient" {
			w.fa.HasProviderImport = true
		}
	}
}

func importNames(clause *sitter.Node, src []byte) []string {
	var names []string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			names = append(names, c.Content(src))
		case "namespace_import":
			if c.NamedChildCount() > 0 {
				names = append(names, c.NamedChild(0).Content(src))
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					names = append(names, name.Content(src))
				}
			}
		}
	}
	return names
}

// identifierCall handles calls through a bare identifier: hook calls and calls
// of functions bound from useMutation/useAction.
func (w *walker) identifierCall(n *sitter.Node, name string) {
	if clientHooks[name] {
		line, col := w.position(n)
		bound := assignedName(n, w.src)
		if strings.ContainsAny(bound, "[{") {
			bound = ""
		}
		w.fa.Hooks = append(w.fa.Hooks, facts.HookCall{
			Hook:      name,
			Line:      line,
			Column:    col,
			BoundName: bound,
		})
		if bound != "" && (name == "useMutation" || name == "useAction") {
			w.hookBindings[bound] = hookBinding{index: len(w.fa.Hooks) - 1, depth: w.funcDepth}
		}
		return
	}
	if b, ok := w.hookBindings[name]; ok && b.depth == w.funcDepth {
		w.fa.Hooks[b.index].CalledInRender = true
	}
}
