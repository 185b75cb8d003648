package facts

// FunctionKind is the Convex constructor a backend function was defined with.
type FunctionKind int

const (
	Query FunctionKind = iota
	Mutation
	Action
	HTTPAction
	InternalQuery
	InternalMutation
	InternalAction
)

var kindNames = map[FunctionKind]string{
	Query:            "query",
	Mutation:         "mutation",
	Action:           "action",
	HTTPAction:       "httpAction",
	InternalQuery:    "internalQuery",
	InternalMutation: "internalMutation",
	InternalAction:   "internalAction",
}

// String returns the constructor name as written in source.
func (k FunctionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseFunctionKind maps a constructor identifier to its kind.
func ParseFunctionKind(name string) (FunctionKind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// IsPublic reports whether clients can call functions of this kind directly.
func (k FunctionKind) IsPublic() bool {
	switch k {
	case Query, Mutation, Action, HTTPAction:
		return true
	default:
		return false
	}
}

// IsActionLike reports whether the kind runs without database access.
func (k FunctionKind) IsActionLike() bool {
	return k == Action || k == InternalAction
}

// IsQueryLike reports whether the kind is a read-only deterministic query.
func (k FunctionKind) IsQueryLike() bool {
	return k == Query || k == InternalQuery
}

// IsMutationLike reports whether the kind is a transactional mutation.
func (k FunctionKind) IsMutationLike() bool {
	return k == Mutation || k == InternalMutation
}

// ConvexFunction is one detected function definition.
type ConvexFunction struct {
	Name                string       `json:"name"`
	Kind                FunctionKind `json:"kind"`
	HasArgsValidator    bool         `json:"has_args_validator"`
	HasReturnsValidator bool         `json:"has_returns_validator"`
	HasAuthCheck        bool         `json:"has_auth_check"`
	HasTrustedCheck     bool         `json:"has_trusted_check"`
	MarkedPublic        bool         `json:"marked_public"`
	ArgNames            []string     `json:"arg_names,omitempty"`
	HasAnyValidator     bool         `json:"has_any_validator"`
	HandlerLines        int          `json:"handler_lines"`
	Legacy              bool         `json:"legacy"`
	Line                int          `json:"line"`
	Column              int          `json:"column"`
}

// IsPublic reports whether the function is reachable by clients.
func (f ConvexFunction) IsPublic() bool {
	return f.Kind.IsPublic()
}

// ArgCount returns the number of declared argument fields.
func (f ConvexFunction) ArgCount() int {
	return len(f.ArgNames)
}

// CtxCall is one call made through the per-request context object.
type CtxCall struct {
	Chain                    string        `json:"chain"`
	Line                     int           `json:"line"`
	Column                   int           `json:"column"`
	Awaited                  bool          `json:"awaited"`
	Returned                 bool          `json:"returned"`
	AssignedTo               string        `json:"assigned_to,omitempty"`
	InLoop                   bool          `json:"in_loop"`
	Awaitable                bool          `json:"awaitable"`
	EnclosingKind            *FunctionKind `json:"enclosing_kind,omitempty"`
	EnclosingFunction        string        `json:"enclosing_function,omitempty"`
	FirstArgChain            string        `json:"first_arg_chain,omitempty"`
	EnclosingHasTrustedCheck bool          `json:"enclosing_has_trusted_check"`
}

// InFunction reports whether the call sits inside a detected function definition.
func (c CtxCall) InFunction() bool {
	return c.EnclosingKind != nil
}
