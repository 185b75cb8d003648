package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// wrapperTypes are expression nodes that do not change what a call evaluates to.
var wrapperTypes = map[string]bool{
	"await_expression":         true,
	"parenthesized_expression": true,
	"as_expression":            true,
	"satisfies_expression":     true,
	"non_null_expression":      true,
}

var functionTypes = map[string]bool{
	"arrow_function":                 true,
	"function":                       true,
	"function_expression":            true,
	"function_declaration":           true,
	"generator_function":             true,
	"generator_function_declaration": true,
	"method_definition":              true,
}

var loopTypes = map[string]bool{
	"for_statement":    true,
	"for_in_statement": true,
	"while_statement":  true,
	"do_statement":     true,
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func isFunctionNode(n *sitter.Node) bool {
	return n != nil && functionTypes[n.Type()]
}

// chainSegments resolves static member accesses and calls into dotted segments.
// Calls are transparent; only identifier roots and dot accesses resolve.
func chainSegments(n *sitter.Node, src []byte) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "identifier":
		return []string{n.Content(src)}, true
	case "member_expression":
		prop := n.ChildByFieldName("property")
		if prop == nil || (prop.Type() != "property_identifier" && prop.Type() != "private_property_identifier") {
			return nil, false
		}
		segs, ok := chainSegments(n.ChildByFieldName("object"), src)
		if !ok {
			return nil, false
		}
		return append(segs, prop.Content(src)), true
	case "call_expression":
		return chainSegments(n.ChildByFieldName("function"), src)
	default:
		return nil, false
	}
}

func chainString(n *sitter.Node, src []byte) string {
	segs, ok := chainSegments(n, src)
	if !ok {
		return ""
	}
	return strings.Join(segs, ".")
}

func hasSegment(segs []string, want ...string) bool {
	for _, s := range segs {
		for _, w := range want {
			if s == w {
				return true
			}
		}
	}
	return false
}

// containsPair reports whether a, b appear consecutively in segs.
func containsPair(segs []string, a, b string) bool {
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == a && segs[i+1] == b {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// arguments returns the named argument nodes of a call or new expression.
func arguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, args.NamedChildCount())
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func argument(call *sitter.Node, idx int) *sitter.Node {
	args := arguments(call)
	if idx < len(args) {
		return args[idx]
	}
	return nil
}

// stringValue returns the contents of a plain string literal.
func stringValue(n *sitter.Node, src []byte) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	raw := n.Content(src)
	if len(raw) < 2 {
		return "", false
	}
	return raw[1 : len(raw)-1], true
}

// stringArray returns the elements of an array literal made only of string literals.
func stringArray(n *sitter.Node, src []byte) ([]string, bool) {
	if n == nil || n.Type() != "array" {
		return nil, false
	}
	out := make([]string, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		s, ok := stringValue(c, src)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// property is one entry of an object literal.
type property struct {
	key   string
	value *sitter.Node
	node  *sitter.Node
}

// objectProperties lists the statically named entries of an object literal.
func objectProperties(obj *sitter.Node, src []byte) []property {
	if obj == nil || obj.Type() != "object" {
		return nil
	}
	var props []property
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		c := obj.NamedChild(i)
		switch c.Type() {
		case "pair":
			if key := propertyKey(c.ChildByFieldName("key"), src); key != "" {
				props = append(props, property{key: key, value: c.ChildByFieldName("value"), node: c})
			}
		case "shorthand_property_identifier":
			props = append(props, property{key: c.Content(src), node: c})
		case "method_definition":
			if key := propertyKey(c.ChildByFieldName("name"), src); key != "" {
				props = append(props, property{key: key, value: c, node: c})
			}
		}
	}
	return props
}

func propertyKey(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "property_identifier", "identifier":
		return n.Content(src)
	case "string":
		s, _ := stringValue(n, src)
		return s
	default:
		return ""
	}
}

func lookupProperty(props []property, key string) (property, bool) {
	for _, p := range props {
		if p.key == key {
			return p, true
		}
	}
	return property{}, false
}

// unwrapParent climbs from n through wrapper expressions and returns the first
// non-wrapper ancestor together with the child that leads to it.
func unwrapParent(n *sitter.Node) (parent, child *sitter.Node) {
	child = n
	parent = n.Parent()
	for parent != nil && wrapperTypes[parent.Type()] {
		child = parent
		parent = parent.Parent()
	}
	return parent, child
}

// isReturned reports whether the value of n is returned from its function.
func isReturned(n *sitter.Node) bool {
	parent, child := unwrapParent(n)
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "return_statement":
		return true
	case "arrow_function":
		return sameNode(parent.ChildByFieldName("body"), child)
	}
	return false
}

// assignedName returns the binding that receives the value of n, if any.
func assignedName(n *sitter.Node, src []byte) string {
	parent, child := unwrapParent(n)
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator":
		if sameNode(parent.ChildByFieldName("value"), child) {
			if name := parent.ChildByFieldName("name"); name != nil {
				return name.Content(src)
			}
		}
	case "assignment_expression":
		if sameNode(parent.ChildByFieldName("right"), child) {
			if left := parent.ChildByFieldName("left"); left != nil {
				return left.Content(src)
			}
		}
	}
	return ""
}

// isChainInner reports whether call is the receiver of a longer call chain,
// as ctx.db.query("t") is in ctx.db.query("t").collect().
func isChainInner(call *sitter.Node) bool {
	parent := call.Parent()
	if parent == nil || parent.Type() != "member_expression" || !sameNode(parent.ChildByFieldName("object"), call) {
		return false
	}
	grand := parent.Parent()
	return grand != nil && grand.Type() == "call_expression" && sameNode(grand.ChildByFieldName("function"), parent)
}

// chainCalls returns the calls of a member/call chain from outermost to innermost,
// each paired with the name of the member it invokes.
func chainCalls(call *sitter.Node, src []byte) []namedCall {
	var out []namedCall
	n := call
	for n != nil {
		switch n.Type() {
		case "call_expression":
			fn := n.ChildByFieldName("function")
			name := ""
			if fn != nil {
				switch fn.Type() {
				case "member_expression":
					if prop := fn.ChildByFieldName("property"); prop != nil {
						name = prop.Content(src)
					}
				case "identifier":
					name = fn.Content(src)
				}
			}
			out = append(out, namedCall{name: name, node: n})
			n = fn
		case "member_expression":
			n = n.ChildByFieldName("object")
		default:
			n = nil
		}
	}
	return out
}

type namedCall struct {
	name string
	node *sitter.Node
}

func findCall(calls []namedCall, name string) *sitter.Node {
	for _, c := range calls {
		if c.name == name {
			return c.node
		}
	}
	return nil
}

// containsCall reports whether the subtree rooted at n contains a call with the given chain.
func containsCall(n *sitter.Node, src []byte, chain string) bool {
	if n == nil {
		return false
	}
	if n.Type() == "call_expression" && chainString(n.ChildByFieldName("function"), src) == chain {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsCall(n.NamedChild(i), src, chain) {
			return true
		}
	}
	return false
}

func hasOptionalChain(member *sitter.Node) bool {
	for i := 0; i < int(member.ChildCount()); i++ {
		if member.Child(i).Type() == "optional_chain" {
			return true
		}
	}
	return false
}
