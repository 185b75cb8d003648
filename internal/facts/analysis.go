// Package facts holds the per-file fact records produced by the extractor
// and consumed by rules.
package facts

// Import is one import declaration.
type Import struct {
	Source string   `json:"source"`
	Names  []string `json:"names,omitempty"`
	Line   int      `json:"line"`
}

// CallSite locates one occurrence of a detected idiom.
type CallSite struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Detail string `json:"detail,omitempty"`
	// Function is the export name of the enclosing function definition, if any.
	Function string        `json:"function,omitempty"`
	Kind     *FunctionKind `json:"kind,omitempty"`
}

// TableDef is one defineTable call.
type TableDef struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Line int    `json:"line"`
}

// IndexDef is one .index(name, fields) declaration.
type IndexDef struct {
	TableKey  string   `json:"table_key"`
	TableName string   `json:"table_name,omitempty"`
	Name      string   `json:"name"`
	Fields    []string `json:"fields"`
	File      string   `json:"file"`
	Line      int      `json:"line"`
}

// SearchIndexDef is one .searchIndex(name, {searchField, filterFields}) declaration.
type SearchIndexDef struct {
	TableKey        string   `json:"table_key"`
	TableName       string   `json:"table_name,omitempty"`
	Name            string   `json:"name"`
	SearchField     string   `json:"search_field"`
	FilterFields    []string `json:"filter_fields,omitempty"`
	HasFilterFields bool     `json:"has_filter_fields"`
	File            string   `json:"file"`
	Line            int      `json:"line"`
}

// IDField is a v.id("table") field declared directly on a table.
type IDField struct {
	TableKey  string `json:"table_key"`
	TableName string `json:"table_name,omitempty"`
	Field     string `json:"field"`
	RefTable  string `json:"ref_table"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

// FilterFieldUsage is a q.field("name") reference inside a database .filter() call.
type FilterFieldUsage struct {
	Table  string `json:"table,omitempty"`
	Field  string `json:"field"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// HTTPRoute is one http.route({path, method}) registration.
type HTTPRoute struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// HookCall is one Convex React hook call site.
type HookCall struct {
	Hook           string `json:"hook"`
	Line           int    `json:"line"`
	Column         int    `json:"column"`
	BoundName      string `json:"bound_name,omitempty"`
	CalledInRender bool   `json:"called_in_render"`
	LoadingHandled bool   `json:"loading_handled"`
	Dereferenced   bool   `json:"dereferenced"`
}

// FileAnalysis is the immutable fact record for one source file.
type FileAnalysis struct {
	Path string `json:"path"`

	UseNode      bool `json:"use_node"`
	IsSchema     bool `json:"is_schema"`
	IsHTTPRouter bool `json:"is_http_router"`
	IsClient     bool `json:"is_client"`

	Functions []ConvexFunction `json:"functions,omitempty"`
	Imports   []Import         `json:"imports,omitempty"`
	CtxCalls  []CtxCall        `json:"ctx_calls,omitempty"`

	UnboundedCollects []CallSite `json:"unbounded_collects,omitempty"`
	FilterCalls       []CallSite `json:"filter_calls,omitempty"`
	NonDeterministic  []CallSite `json:"non_deterministic,omitempty"`
	LoopCalls         []CallSite `json:"loop_calls,omitempty"`
	DeprecatedCalls   []CallSite `json:"deprecated_calls,omitempty"`
	Secrets           []CallSite `json:"secrets,omitempty"`
	LegacyFunctions   []CallSite `json:"legacy_functions,omitempty"`
	RawPatches        []CallSite `json:"raw_patches,omitempty"`
	LargeWrites       []CallSite `json:"large_writes,omitempty"`
	CollectThenFilter []CallSite `json:"collect_then_filter,omitempty"`

	ExportedFunctionCount int `json:"exported_function_count"`
	HelperFunctionCount   int `json:"helper_function_count"`

	SchemaNestingDepth int                `json:"schema_nesting_depth"`
	Tables             []TableDef         `json:"tables,omitempty"`
	Indexes            []IndexDef         `json:"indexes,omitempty"`
	SearchIndexes      []SearchIndexDef   `json:"search_indexes,omitempty"`
	IDFields           []IDField          `json:"id_fields,omitempty"`
	FilterFields       []FilterFieldUsage `json:"filter_fields,omitempty"`
	OptionalFieldCount int                `json:"optional_field_count"`

	HTTPRoutes        []HTTPRoute `json:"http_routes,omitempty"`
	Hooks             []HookCall  `json:"hooks,omitempty"`
	HasProviderImport bool        `json:"has_provider_import"`
}

// Function returns the detected function with the given export name.
func (fa *FileAnalysis) Function(name string) (ConvexFunction, bool) {
	for _, fn := range fa.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return ConvexFunction{}, false
}

// HasPublicFunctions reports whether any public function is defined.
func (fa *FileAnalysis) HasPublicFunctions() bool {
	for _, fn := range fa.Functions {
		if fn.IsPublic() {
			return true
		}
	}
	return false
}

// HasInternalFunctions reports whether any internal function is defined.
func (fa *FileAnalysis) HasInternalFunctions() bool {
	for _, fn := range fa.Functions {
		if !fn.IsPublic() {
			return true
		}
	}
	return false
}
