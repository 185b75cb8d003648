package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

// fnBuilder accumulates one function definition while its call is traversed.
type fnBuilder struct {
	fn    facts.ConvexFunction
	node  *sitter.Node
	calls []int
}

func (w *walker) exportStatement(n *sitter.Node) {
	marked := w.hasPublicMarker(n)
	decl := n.ChildByFieldName("declaration")
	value := n.ChildByFieldName("value")

	switch {
	case decl != nil && (decl.Type() == "lexical_declaration" || decl.Type() == "variable_declaration"):
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() != "variable_declarator" {
				w.visit(d)
				continue
			}
			w.exportedDeclarator(d, marked)
		}
	case decl != nil:
		if isFunctionNode(decl) {
			w.fa.ExportedFunctionCount++
		}
		w.visit(decl)
	case value != nil:
		savedName, savedInit, savedMarked := w.exportName, w.initializer, w.markedPublic
		w.exportName, w.initializer, w.markedPublic = "default", value, marked
		w.visit(value)
		w.exportName, w.initializer, w.markedPublic = savedName, savedInit, savedMarked
	default:
		w.children(n)
	}
}

func (w *walker) exportedDeclarator(d *sitter.Node, marked bool) {
	name := d.ChildByFieldName("name")
	value := d.ChildByFieldName("value")
	if name == nil || name.Type() != "identifier" {
		w.visit(d)
		return
	}
	if isFunctionNode(value) {
		w.fa.ExportedFunctionCount++
	}

	savedName, savedInit, savedMarked := w.exportName, w.initializer, w.markedPublic
	w.exportName, w.initializer, w.markedPublic = w.text(name), value, marked
	w.visit(d)
	if w.builder != nil && sameNode(w.builder.node, value) {
		w.finalizeFunction()
	}
	w.exportName, w.initializer, w.markedPublic = savedName, savedInit, savedMarked
}

// hasPublicMarker reports whether an @public comment directly precedes the export.
func (w *walker) hasPublicMarker(n *sitter.Node) bool {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return false
	}
	if !strings.Contains(w.text(prev), "@public") {
		return false
	}
	return w.lines.Line(int(n.StartByte()))-w.lines.Line(int(prev.EndByte())) <= 1
}

// beginFunction starts a builder when call is the initializer of the current export
// and its callee names a function kind.
func (w *walker) beginFunction(call *sitter.Node) bool {
	if w.builder != nil || w.exportName == "" || !sameNode(call, w.initializer) {
		return false
	}
	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Type() != "identifier" {
		return false
	}
	kind, ok := facts.ParseFunctionKind(w.text(callee))
	if !ok {
		return false
	}

	line, col := w.position(call)
	fn := facts.ConvexFunction{
		Name:         w.exportName,
		Kind:         kind,
		MarkedPublic: w.markedPublic,
		Line:         line,
		Column:       col,
	}

	first := argument(call, 0)
	switch {
	case first != nil && first.Type() == "object":
		w.inspectConfig(&fn, first)
	case first != nil:
		// httpAction takes its handler directly
		fn.Legacy = kind != facts.HTTPAction
		fn.HandlerLines = w.lines.NodeLines(first)
	}

	w.builder = &fnBuilder{fn: fn, node: call}
	if fn.Legacy {
		w.fa.LegacyFunctions = append(w.fa.LegacyFunctions, w.site(call, kind.String()))
	}
	return true
}

// inspectConfig reads the args, returns and handler keys of a definition object.
func (w *walker) inspectConfig(fn *facts.ConvexFunction, obj *sitter.Node) {
	props := objectProperties(obj, w.src)
	if p, ok := lookupProperty(props, "args"); ok {
		fn.HasArgsValidator = true
		fields := p.value
		if fields != nil && fields.Type() == "call_expression" && chainString(fields.ChildByFieldName("function"), w.src) == "v.object" {
			fields = argument(fields, 0)
		}
		for _, arg := range objectProperties(fields, w.src) {
			fn.ArgNames = append(fn.ArgNames, arg.key)
			if containsCall(arg.value, w.src, "v.any") {
				fn.HasAnyValidator = true
			}
		}
	}
	if _, ok := lookupProperty(props, "returns"); ok {
		fn.HasReturnsValidator = true
	}
	if p, ok := lookupProperty(props, "handler"); ok && p.value != nil {
		fn.HandlerLines = w.lines.NodeLines(p.value)
	}
}

func (w *walker) finalizeFunction() {
	b := w.builder
	w.builder = nil
	for _, idx := range b.calls {
		w.fa.CtxCalls[idx].EnclosingHasTrustedCheck = b.fn.HasTrustedCheck
	}
	w.fa.Functions = append(w.fa.Functions, b.fn)
	w.fa.ExportedFunctionCount++
}
