package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

// deprecatedCalls maps deprecated APIs to their replacement.
var deprecatedCalls = map[string]string{
	"v.bigint":                "v.int64()",
	"ctx.storage.getMetadata": `ctx.db.system.get("_storage", id)`,
}

const (
	// largeWriteProperties is the property count above which an inline document is oversized.
	largeWriteProperties = 25
	// largeWriteElements is the array length above which an inline document is oversized.
	largeWriteElements = 50
)

var boundedQuerySegments = []string{"withIndex", "withSearchIndex", "take", "paginate", "first", "unique"}

func (w *walker) callExpression(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	segs, resolved := chainSegments(callee, w.src)
	chain := strings.Join(segs, ".")

	defaultExport := w.beginFunction(n) && w.exportName == "default"

	if resolved {
		w.callIdioms(n, segs, chain)
		if len(segs) >= 2 && segs[0] == "ctx" && !isChainInner(n) {
			w.recordCtxCall(n, segs, chain)
		}
	}
	if callee != nil && callee.Type() == "identifier" {
		w.identifierCall(n, w.text(callee))
	}

	if chain == "v.object" || chain == "v.array" {
		w.validatorDepth++
		if w.validatorDepth > w.fa.SchemaNestingDepth {
			w.fa.SchemaNestingDepth = w.validatorDepth
		}
		w.children(n)
		w.validatorDepth--
	} else {
		w.children(n)
	}

	if defaultExport && w.builder != nil && sameNode(w.builder.node, n) {
		w.finalizeFunction()
	}
}

// callIdioms detects the non-ctx idioms a resolved call chain can express.
func (w *walker) callIdioms(n *sitter.Node, segs []string, chain string) {
	if replacement, ok := deprecatedCalls[chain]; ok {
		w.fa.DeprecatedCalls = append(w.fa.DeprecatedCalls, w.site(n, chain+" -> "+replacement))
	}

	switch chain {
	case "Date.now", "Math.random":
		w.fa.NonDeterministic = append(w.fa.NonDeterministic, w.site(n, chain+"()"))
	case "v.optional":
		w.fa.OptionalFieldCount++
	case "defineSchema":
		w.fa.IsSchema = true
	case "httpRouter":
		w.fa.IsHTTPRouter = true
	case "defineTable":
		w.defineTable(n)
	}

	last := segs[len(segs)-1]
	switch {
	case len(segs) > 1 && last == "index":
		w.indexDefinition(n)
	case len(segs) > 1 && last == "searchIndex":
		w.searchIndexDefinition(n)
	case len(segs) == 2 && last == "route":
		w.httpRoute(n)
	case len(segs) == 2 && last == "filter" && w.collected[w.bindingKey(segs[0])]:
		w.fa.CollectThenFilter = append(w.fa.CollectThenFilter, w.site(n, segs[0]))
	}
}

func (w *walker) bindingKey(name string) string {
	if w.builder != nil {
		return w.builder.fn.Name + "/" + name
	}
	return "/" + name
}

// functionRefArg is the position of the function reference for ctx calls that take one.
var functionRefArg = map[string]int{
	"ctx.runQuery":           0,
	"ctx.runMutation":        0,
	"ctx.runAction":          0,
	"ctx.scheduler.runAfter": 1,
	"ctx.scheduler.runAt":    1,
}

func (w *walker) recordCtxCall(n *sitter.Node, segs []string, chain string) {
	line, col := w.position(n)
	call := facts.CtxCall{
		Chain:      chain,
		Line:       line,
		Column:     col,
		Awaited:    w.awaited,
		Returned:   isReturned(n),
		AssignedTo: assignedName(n, w.src),
		Awaitable:  hasAnyPrefix(chain, w.opts.Awaitable),
	}
	if i, ok := functionRefArg[chain]; ok {
		call.FirstArgChain = chainString(argument(n, i), w.src)
	} else {
		for _, arg := range arguments(n) {
			if ref := chainString(arg, w.src); ref != "" {
				call.FirstArgChain = ref
				break
			}
		}
	}
	if w.loopDepth > 0 && hasAnyPrefix(chain, w.opts.ExpensiveInLoop) {
		call.InLoop = true
		w.fa.LoopCalls = append(w.fa.LoopCalls, w.site(n, chain))
	}
	if w.builder != nil {
		kind := w.builder.fn.Kind
		call.EnclosingKind = &kind
		call.EnclosingFunction = w.builder.fn.Name
		w.builder.calls = append(w.builder.calls, len(w.fa.CtxCalls))
	}
	w.fa.CtxCalls = append(w.fa.CtxCalls, call)

	if len(segs) >= 4 && segs[1] == "db" && segs[2] == "query" {
		w.queryChain(n, segs, call.AssignedTo)
	}
	switch chain {
	case "ctx.db.patch":
		if isRawArgs(argument(n, 1), w.src) {
			w.fa.RawPatches = append(w.fa.RawPatches, w.site(n, chain))
		}
		w.largeWrite(n, argument(n, 1), chain)
	case "ctx.db.insert", "ctx.db.replace":
		w.largeWrite(n, argument(n, 1), chain)
	}
}

// queryChain inspects ctx.db.query(...) chains for unbounded reads and filters.
func (w *walker) queryChain(n *sitter.Node, segs []string, assigned string) {
	calls := chainCalls(n, w.src)
	table := ""
	if q := findCall(calls, "query"); q != nil {
		table, _ = stringValue(argument(q, 0), w.src)
	}

	if segs[len(segs)-1] == "collect" && !hasSegment(segs, boundedQuerySegments...) {
		w.fa.UnboundedCollects = append(w.fa.UnboundedCollects, w.site(n, table))
	}
	if segs[len(segs)-1] == "collect" && assigned != "" {
		w.collected[w.bindingKey(assigned)] = true
	}
	if filter := findCall(calls, "filter"); filter != nil {
		w.fa.FilterCalls = append(w.fa.FilterCalls, w.site(filter, table))
		w.filterFields(argument(filter, 0), table)
	}
}

// filterFields records q.field("name") references inside a filter predicate.
func (w *walker) filterFields(n *sitter.Node, table string) {
	if n == nil {
		return
	}
	if n.Type() == "call_expression" {
		segs, ok := chainSegments(n.ChildByFieldName("function"), w.src)
		if ok && len(segs) == 2 && segs[1] == "field" {
			if field, ok := stringValue(argument(n, 0), w.src); ok {
				line, col := w.position(n)
				w.fa.FilterFields = append(w.fa.FilterFields, facts.FilterFieldUsage{
					Table:  table,
					Field:  field,
					File:   w.path,
					Line:   line,
					Column: col,
				})
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.filterFields(n.NamedChild(i), table)
	}
}

// isRawArgs reports whether a patch payload forwards the function arguments wholesale.
func isRawArgs(n *sitter.Node, src []byte) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier":
		return n.Content(src) == "args"
	case "object":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "spread_element" && c.NamedChildCount() > 0 {
				if inner := c.NamedChild(0); inner.Type() == "identifier" && inner.Content(src) == "args" {
					return true
				}
			}
		}
	}
	return false
}

func (w *walker) largeWrite(call, doc *sitter.Node, chain string) {
	if doc == nil || doc.Type() != "object" {
		return
	}
	if int(doc.NamedChildCount()) > largeWriteProperties || hasLargeArray(doc) {
		w.fa.LargeWrites = append(w.fa.LargeWrites, w.site(call, chain))
	}
}

func hasLargeArray(n *sitter.Node) bool {
	if n.Type() == "array" && int(n.NamedChildCount()) > largeWriteElements {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if hasLargeArray(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

func (w *walker) httpRoute(n *sitter.Node) {
	props := objectProperties(argument(n, 0), w.src)
	method, ok := lookupProperty(props, "method")
	if !ok {
		return
	}
	methodValue, ok := stringValue(method.value, w.src)
	if !ok {
		return
	}
	path := ""
	if p, ok := lookupProperty(props, "path"); ok {
		path, _ = stringValue(p.value, w.src)
	} else if p, ok := lookupProperty(props, "pathPrefix"); ok {
		path, _ = stringValue(p.value, w.src)
	}
	line, col := w.position(n)
	w.fa.HTTPRoutes = append(w.fa.HTTPRoutes, facts.HTTPRoute{
		Path:   path,
		Method: strings.ToUpper(methodValue),
		Line:   line,
		Column: col,
	})
}
