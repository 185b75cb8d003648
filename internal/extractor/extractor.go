// Package extractor reduces one parsed source file into a facts.FileAnalysis.
//
// Extraction is a single depth-first traversal. All traversal state lives in a
// walker owned by the Extract call; nothing is shared between files, so files can
// be extracted concurrently.
package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/parser"
)

// Options carries the call-prefix lists that drive loop and await detection.
type Options struct {
	// ExpensiveInLoop are ctx call prefixes flagged when called inside a loop body.
	ExpensiveInLoop []string
	// Awaitable are ctx call prefixes whose promise must be awaited.
	Awaitable []string
}

// DefaultExpensiveInLoop lists the ctx calls that cost a round trip or a database read.
var DefaultExpensiveInLoop = []string{
	"ctx.db.",
	"ctx.runQuery",
	"ctx.runMutation",
	"ctx.runAction",
	"ctx.scheduler.",
	"ctx.storage.",
	"ctx.vectorSearch",
}

// DefaultAwaitable lists the ctx calls returning promises that must not float.
var DefaultAwaitable = []string{
	"ctx.db.insert",
	"ctx.db.patch",
	"ctx.db.replace",
	"ctx.db.delete",
	"ctx.db.get",
	"ctx.runQuery",
	"ctx.runMutation",
	"ctx.runAction",
	"ctx.scheduler.runAfter",
	"ctx.scheduler.runAt",
	"ctx.scheduler.cancel",
	"ctx.storage.delete",
	"ctx.storage.getUrl",
	"ctx.storage.store",
}

// DefaultOptions returns the built-in prefix lists.
func DefaultOptions() Options {
	return Options{
		ExpensiveInLoop: append([]string(nil), DefaultExpensiveInLoop...),
		Awaitable:       append([]string(nil), DefaultAwaitable...),
	}
}

// WithExtra returns a copy of o with additional prefixes appended.
func (o Options) WithExtra(loop, awaitable []string) Options {
	return Options{
		ExpensiveInLoop: append(append([]string(nil), o.ExpensiveInLoop...), loop...),
		Awaitable:       append(append([]string(nil), o.Awaitable...), awaitable...),
	}
}

// walker is the traversal state for one file.
type walker struct {
	path  string
	src   []byte
	lines *parser.LineIndex
	opts  Options
	fa    *facts.FileAnalysis

	loopDepth      int
	awaited        bool
	exportName     string
	initializer    *sitter.Node
	markedPublic   bool
	builder        *fnBuilder
	validatorDepth int
	funcDepth      int

	tableNames   map[uint32]string
	collected    map[string]bool
	hookBindings map[string]hookBinding
	guarded      map[string]bool
	dereferenced map[string]bool
}

type hookBinding struct {
	index int
	depth int
}

// Extract walks the syntax tree of one file and returns its facts.
// It performs no I/O and never fails.
func Extract(path string, tree *parser.Tree, opts Options) *facts.FileAnalysis {
	w := &walker{
		path:         path,
		src:          tree.Src,
		lines:        tree.Lines,
		opts:         opts,
		fa:           &facts.FileAnalysis{Path: path},
		tableNames:   make(map[uint32]string),
		collected:    make(map[string]bool),
		hookBindings: make(map[string]hookBinding),
		guarded:      make(map[string]bool),
		dereferenced: make(map[string]bool),
	}
	w.program(tree.Root)
	w.finish()
	return w.fa
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *walker) position(n *sitter.Node) (int, int) {
	return w.lines.NodePosition(n)
}

func (w *walker) site(n *sitter.Node, detail string) facts.CallSite {
	line, col := w.position(n)
	site := facts.CallSite{Line: line, Column: col, Detail: detail}
	if w.builder != nil {
		kind := w.builder.fn.Kind
		site.Function = w.builder.fn.Name
		site.Kind = &kind
	}
	return site
}

func (w *walker) program(root *sitter.Node) {
	w.directives(root)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		w.countTopLevel(child)
		w.visit(child)
	}
}

// directives reads the leading string statements of the file ("use node").
func (w *walker) directives(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if child.Type() != "expression_statement" || child.NamedChildCount() == 0 {
			return
		}
		value, ok := stringValue(child.NamedChild(0), w.src)
		if !ok {
			return
		}
		if value == "use node" {
			w.fa.UseNode = true
		}
	}
}

// countTopLevel tallies non-exported helper functions declared at file scope.
func (w *walker) countTopLevel(n *sitter.Node) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		w.fa.HelperFunctionCount++
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			if d.Type() == "variable_declarator" && isFunctionNode(d.ChildByFieldName("value")) {
				w.fa.HelperFunctionCount++
			}
		}
	}
}

func (w *walker) children(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.visit(n.NamedChild(i))
	}
}

func (w *walker) visit(n *sitter.Node) {
	if n == nil {
		return
	}

	switch t := n.Type(); {
	case t == "export_statement":
		w.exportStatement(n)
		return
	case t == "import_statement":
		w.importStatement(n)
		return
	case loopTypes[t]:
		w.loop(n)
		return
	case t == "await_expression":
		saved := w.awaited
		w.awaited = true
		w.children(n)
		w.awaited = saved
		return
	case functionTypes[t]:
		saved := w.awaited
		w.awaited = false
		w.funcDepth++
		w.children(n)
		w.funcDepth--
		w.awaited = saved
		return
	case t == "call_expression":
		w.callExpression(n)
		return
	case t == "new_expression":
		w.newExpression(n)
	case t == "member_expression":
		w.memberExpression(n)
	case t == "string":
		w.stringLiteral(n)
	case t == "pair":
		w.nameTable(n.ChildByFieldName("value"), propertyKey(n.ChildByFieldName("key"), w.src))
	case t == "variable_declarator":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			w.nameTable(n.ChildByFieldName("value"), w.text(name))
		}
	case t == "binary_expression", t == "unary_expression", t == "ternary_expression", t == "if_statement":
		w.guard(n)
	}

	w.children(n)
}

// loop raises the loop depth around the body only; headers run once.
func (w *walker) loop(n *sitter.Node) {
	body := n.ChildByFieldName("body")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if sameNode(child, body) {
			w.loopDepth++
			w.visit(child)
			w.loopDepth--
			continue
		}
		w.visit(child)
	}
}

func (w *walker) memberExpression(n *sitter.Node) {
	if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" {
		if hasOptionalChain(n) {
			w.guarded[w.text(obj)] = true
		} else {
			w.dereferenced[w.text(obj)] = true
		}
	}

	if w.builder == nil {
		return
	}
	segs, ok := chainSegments(n, w.src)
	if !ok {
		return
	}
	if containsPair(segs, "ctx", "auth") {
		w.builder.fn.HasAuthCheck = true
	}
	if len(segs) == 3 && segs[0] == "process" && segs[1] == "env" && isTrustedEnvName(segs[2]) {
		w.builder.fn.HasTrustedCheck = true
	}
}

func isTrustedEnvName(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "SECRET") || strings.Contains(upper, "TOKEN") || strings.Contains(upper, "API_KEY")
}

// secretPrefixes are well-known credential prefixes.
var secretPrefixes = []string{
	"sk_live_", "sk_test_", "rk_live_", "ghp_", "gho_", "ghs_", "github_pat_", "glpat-",
	"xoxb-", "xoxp-", "AKIA", "AIza", "sk-ant-", "sk-proj-", "SG.",
}

// minSecretLength keeps short fixtures such as "sk_test_123" from matching.
const minSecretLength = 20

func (w *walker) stringLiteral(n *sitter.Node) {
	value, ok := stringValue(n, w.src)
	if !ok || len(value) < minSecretLength {
		return
	}
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(value, prefix) {
			w.fa.Secrets = append(w.fa.Secrets, w.site(n, prefix))
			return
		}
	}
}

func (w *walker) newExpression(n *sitter.Node) {
	ctor := n.ChildByFieldName("constructor")
	if ctor != nil && ctor.Type() == "identifier" && w.text(ctor) == "Date" && len(arguments(n)) == 0 {
		w.fa.NonDeterministic = append(w.fa.NonDeterministic, w.site(n, "new Date()"))
	}
}

// guard records identifiers tested for undefined or falsiness.
func (w *walker) guard(n *sitter.Node) {
	mark := func(c *sitter.Node) {
		for c != nil && c.Type() == "parenthesized_expression" && c.NamedChildCount() > 0 {
			c = c.NamedChild(0)
		}
		if c != nil && c.Type() == "identifier" {
			w.guarded[w.text(c)] = true
		}
	}

	switch n.Type() {
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return
		}
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		switch w.text(op) {
		case "===", "!==", "==", "!=":
			if isNullish(right, w.src) {
				mark(left)
			}
			if isNullish(left, w.src) {
				mark(right)
			}
		case "&&", "||", "??":
			mark(left)
		}
	case "unary_expression":
		if op := n.ChildByFieldName("operator"); op != nil && w.text(op) == "!" {
			mark(n.ChildByFieldName("argument"))
		}
	case "ternary_expression", "if_statement":
		mark(n.ChildByFieldName("condition"))
	}
}

func isNullish(n *sitter.Node, src []byte) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "undefined", "null":
		return true
	case "identifier":
		return n.Content(src) == "undefined"
	}
	return false
}

func (w *walker) finish() {
	if w.builder != nil {
		w.finalizeFunction()
	}
	for i := range w.fa.Hooks {
		hook := &w.fa.Hooks[i]
		if hook.BoundName == "" {
			continue
		}
		hook.LoadingHandled = w.guarded[hook.BoundName]
		hook.Dereferenced = w.dereferenced[hook.BoundName]
	}
}
