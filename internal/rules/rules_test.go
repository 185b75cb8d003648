package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/convex-doctor/internal/extractor"
	"github.com/scan-io-git/convex-doctor/internal/facts"
	"github.com/scan-io-git/convex-doctor/internal/parser"
	"github.com/scan-io-git/convex-doctor/internal/project"
)

func kindPtr(k facts.FunctionKind) *facts.FunctionKind { return &k }

func check(t *testing.T, id string, fa *facts.FileAnalysis) []Diagnostic {
	t.Helper()
	rule, ok := NewRegistry().Lookup(id)
	require.True(t, ok, id)
	return rule.CheckFile(fa)
}

func checkProject(t *testing.T, id string, pc *project.Context) []Diagnostic {
	t.Helper()
	rule, ok := NewRegistry().Lookup(id)
	require.True(t, ok, id)
	pr, ok := rule.(ProjectRule)
	require.True(t, ok, id)
	return pr.CheckProject(pc)
}

func analyze(t *testing.T, path, src string) *facts.FileAnalysis {
	t.Helper()
	tree, err := parser.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	defer tree.Close()
	return extractor.Extract(path, tree, extractor.DefaultOptions())
}

func ruleIDs(diags []Diagnostic) []string {
	var ids []string
	for _, d := range diags {
		ids = append(ids, d.RuleID)
	}
	return ids
}

func TestSecurityFunctionRules(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path: "convex/users.ts",
		Functions: []facts.ConvexFunction{
			{Name: "bare", Kind: facts.Mutation, ArgNames: nil, Line: 3, Column: 1},
			{Name: "guarded", Kind: facts.Query, HasArgsValidator: true, HasReturnsValidator: true, HasAuthCheck: true},
			{Name: "webhook", Kind: facts.Action, HasArgsValidator: true, HasTrustedCheck: true, ArgNames: []string{"userId"}},
			{Name: "open", Kind: facts.Query, HasArgsValidator: true, MarkedPublic: true, ArgNames: []string{"userId"}},
			{Name: "internal", Kind: facts.InternalMutation, ArgNames: []string{"userId"}, HasAnyValidator: true},
			{Name: "hook", Kind: facts.HTTPAction},
		},
	}

	testCases := []struct {
		id    string
		names []string
	}{
		{"security/missing-args-validator", []string{"bare"}},
		{"security/missing-returns-validator", []string{"bare", "webhook", "open"}},
		{"security/missing-auth-check", []string{"bare"}},
		{"security/spoofable-identity-arg", []string{"open"}},
		{"security/any-validator", []string{"internal"}},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			diags := check(t, tc.id, fa)
			require.Len(t, diags, len(tc.names))
			for i, d := range diags {
				assert.Contains(t, d.Message, `"`+tc.names[i]+`"`)
				assert.Equal(t, tc.id, d.RuleID)
				assert.Equal(t, "convex/users.ts", d.File)
			}
		})
	}

	diags := check(t, "security/missing-args-validator", fa)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, Security, diags[0].Category)
	assert.Equal(t, 3, diags[0].Line)
	assert.NotEmpty(t, diags[0].Help)
}

func TestPublicFunctionRef(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path: "convex/jobs.ts",
		CtxCalls: []facts.CtxCall{
			{Chain: "ctx.runMutation", FirstArgChain: "api.tasks.update", Line: 4},
			{Chain: "ctx.scheduler.runAfter", FirstArgChain: "internal.tasks.update", Line: 5},
			{Chain: "ctx.scheduler.runAt", FirstArgChain: "api.tasks.remind", Line: 6},
			{Chain: "ctx.db.get", FirstArgChain: "api", Line: 7},
		},
	}
	diags := check(t, "security/public-function-ref", fa)
	require.Len(t, diags, 2)
	assert.Equal(t, 4, diags[0].Line)
	assert.Equal(t, 6, diags[1].Line)
}

func TestPublicFunctionRefWithIdentifierDelay(t *testing.T) {
	src := `export const kick = mutation({
  args: {},
  handler: async (ctx) => {
    await ctx.scheduler.runAfter(0, api.jobs.run, {});
    await ctx.scheduler.runAfter(DELAY, api.jobs.run, {});
  },
});
`
	diags := check(t, "security/public-function-ref", analyze(t, "convex/kick.ts", src))
	require.Len(t, diags, 2)
	assert.Equal(t, 4, diags[0].Line)
	assert.Equal(t, 5, diags[1].Line)
	assert.Contains(t, diags[1].Message, "api.jobs.run")
}

func TestHTTPMissingCORS(t *testing.T) {
	withoutOptions := &facts.FileAnalysis{
		Path:         "convex/http.ts",
		IsHTTPRouter: true,
		HTTPRoutes:   []facts.HTTPRoute{{Path: "/a", Method: "POST", Line: 5, Column: 1}},
	}
	diags := check(t, "security/http-missing-cors", withoutOptions)
	require.Len(t, diags, 1)
	assert.Equal(t, 5, diags[0].Line)

	withOptions := &facts.FileAnalysis{
		Path:         "convex/http.ts",
		IsHTTPRouter: true,
		HTTPRoutes:   []facts.HTTPRoute{{Path: "/a", Method: "POST"}, {Path: "/a", Method: "OPTIONS"}},
	}
	assert.Empty(t, check(t, "security/http-missing-cors", withOptions))
	assert.Empty(t, check(t, "security/http-missing-cors", &facts.FileAnalysis{IsHTTPRouter: true}))
}

func TestCorrectnessCallRules(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path: "convex/work.ts",
		CtxCalls: []facts.CtxCall{
			{Chain: "ctx.db.insert", Awaitable: true, Line: 1, EnclosingKind: kindPtr(facts.Action), EnclosingFunction: "run"},
			{Chain: "ctx.db.patch", Awaitable: true, Awaited: true, Line: 2, EnclosingKind: kindPtr(facts.Mutation)},
			{Chain: "ctx.runQuery", Awaitable: true, Returned: true, Line: 3, EnclosingKind: kindPtr(facts.Query), EnclosingFunction: "get"},
			{Chain: "ctx.scheduler.runAfter", Awaitable: true, AssignedTo: "jobId", Line: 4},
			{Chain: "ctx.scheduler.runAfter", Awaitable: true, Awaited: true, Line: 5},
			{Chain: "ctx.scheduler.cancel", Awaitable: true, Awaited: true, Line: 6},
			{Chain: "ctx.runAction", Awaitable: true, Awaited: true, Line: 7, EnclosingKind: kindPtr(facts.InternalAction), EnclosingFunction: "chain"},
			{Chain: "ctx.auth.getUserIdentity", Line: 8},
		},
	}

	assert.Equal(t, []string{"correctness/unawaited-call"}, ruleIDs(check(t, "correctness/unawaited-call", fa)))
	assert.Equal(t, 1, check(t, "correctness/unawaited-call", fa)[0].Line)

	dbInAction := check(t, "correctness/db-in-action", fa)
	require.Len(t, dbInAction, 1)
	assert.Contains(t, dbInAction[0].Message, `action "run"`)

	discarded := check(t, "correctness/discarded-scheduler-id", fa)
	require.Len(t, discarded, 1)
	assert.Equal(t, 5, discarded[0].Line)

	inTx := check(t, "performance/run-call-in-transaction", fa)
	require.Len(t, inTx, 1)
	assert.Equal(t, 3, inTx[0].Line)

	chain := check(t, "architecture/action-chain", fa)
	require.Len(t, chain, 1)
	assert.Equal(t, 7, chain[0].Line)
}

func TestDiscardedSchedulerIDNeedsCancel(t *testing.T) {
	fa := &facts.FileAnalysis{
		CtxCalls: []facts.CtxCall{{Chain: "ctx.scheduler.runAfter", Awaited: true}},
	}
	assert.Empty(t, check(t, "correctness/discarded-scheduler-id", fa))
}

func TestNodeRuntimeAndNonDeterminism(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path:    "convex/node.ts",
		UseNode: true,
		Functions: []facts.ConvexFunction{
			{Name: "send", Kind: facts.Action},
			{Name: "list", Kind: facts.Query},
			{Name: "save", Kind: facts.InternalMutation},
		},
		NonDeterministic: []facts.CallSite{
			{Line: 3, Detail: "Date.now()", Function: "list", Kind: kindPtr(facts.Query)},
			{Line: 4, Detail: "Math.random()", Function: "save", Kind: kindPtr(facts.InternalMutation)},
			{Line: 5, Detail: "new Date()"},
		},
	}
	assert.Len(t, check(t, "correctness/query-mutation-in-node-runtime", fa), 2)

	nd := check(t, "correctness/non-deterministic-query", fa)
	require.Len(t, nd, 1)
	assert.Equal(t, 3, nd[0].Line)

	fa.UseNode = false
	assert.Empty(t, check(t, "correctness/query-mutation-in-node-runtime", fa))
}

func TestSchemaFileRules(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path:               "convex/schema.ts",
		SchemaNestingDepth: 4,
		OptionalFieldCount: 11,
		Tables:             []facts.TableDef{{Key: "k", Name: "events", Line: 3}},
		SearchIndexes: []facts.SearchIndexDef{
			{Name: "search_a", HasFilterFields: false, Line: 9},
			{Name: "search_b", HasFilterFields: true, FilterFields: []string{"kind"}, Line: 10},
		},
	}
	for i := 0; i < 17; i++ {
		fa.Indexes = append(fa.Indexes, facts.IndexDef{TableKey: "k", Name: "idx", Fields: []string{"f"}})
	}

	assert.Len(t, check(t, "schema/deep-nesting", fa), 1)
	assert.Len(t, check(t, "schema/optional-fields", fa), 1)
	tooMany := check(t, "schema/too-many-indexes", fa)
	require.Len(t, tooMany, 1)
	assert.Equal(t, 3, tooMany[0].Line)
	search := check(t, "schema/search-index-no-filter", fa)
	require.Len(t, search, 1)
	assert.Equal(t, SeverityInfo, search[0].Severity)

	fa.SchemaNestingDepth = 3
	fa.OptionalFieldCount = 10
	fa.Indexes = fa.Indexes[:16]
	assert.Empty(t, check(t, "schema/deep-nesting", fa))
	assert.Empty(t, check(t, "schema/optional-fields", fa))
	assert.Empty(t, check(t, "schema/too-many-indexes", fa))
}

func TestSearchIndexWithUnresolvedFilterFields(t *testing.T) {
	src := `export default defineSchema({
  posts: defineTable({ body: v.string() })
    .searchIndex("search_body", { searchField: "body", filterFields: FILTERS }),
});
`
	assert.Empty(t, check(t, "schema/search-index-no-filter", analyze(t, "convex/schema.ts", src)))
}

func TestRedundantIndexIsSymmetric(t *testing.T) {
	short := facts.IndexDef{TableKey: "s#1", TableName: "t", Name: "by_a", Fields: []string{"a"}, File: "convex/schema.ts", Line: 4}
	long := facts.IndexDef{TableKey: "s#1", TableName: "t", Name: "by_a_b", Fields: []string{"a", "b"}, File: "convex/schema.ts", Line: 5}
	other := facts.IndexDef{TableKey: "s#99", TableName: "u", Name: "by_a", Fields: []string{"a"}, File: "convex/schema.ts", Line: 9}
	unrelated := facts.IndexDef{TableKey: "s#1", TableName: "t", Name: "by_b", Fields: []string{"b"}, File: "convex/schema.ts", Line: 6}

	forward := checkProject(t, "schema/redundant-index", &project.Context{Indexes: []facts.IndexDef{short, long, other, unrelated}})
	backward := checkProject(t, "schema/redundant-index", &project.Context{Indexes: []facts.IndexDef{unrelated, other, long, short}})

	require.Len(t, forward, 2)
	assert.Equal(t, forward, backward)
	assert.Equal(t, 4, forward[0].Line)
	assert.Equal(t, 5, forward[1].Line)
	assert.Contains(t, forward[0].Message, `"by_a"`)
	assert.Contains(t, forward[1].Message, `"by_a_b"`)
}

func TestSchemaProjectRules(t *testing.T) {
	pc := &project.Context{
		Tables: []facts.TableDef{{Key: "s#1", Name: "tasks"}},
		Indexes: []facts.IndexDef{
			{TableKey: "s#1", TableName: "tasks", Name: "by_owner", Fields: []string{"owner", "status"}},
		},
		IDFields: []facts.IDField{
			{TableKey: "s#1", TableName: "tasks", Field: "owner", RefTable: "users", File: "convex/schema.ts", Line: 3},
			{TableKey: "s#1", TableName: "tasks", Field: "project", RefTable: "projects", File: "convex/schema.ts", Line: 4},
		},
		FilterFields: []facts.FilterFieldUsage{
			{Table: "tasks", Field: "owner", File: "convex/tasks.ts", Line: 10},
			{Table: "tasks", Field: "status", File: "convex/tasks.ts", Line: 11},
			{Table: "unknown", Field: "x", File: "convex/tasks.ts", Line: 12},
			{Field: "y", File: "convex/tasks.ts", Line: 13},
		},
	}

	missing := checkProject(t, "schema/missing-filter-index", pc)
	require.Len(t, missing, 1)
	assert.Equal(t, 11, missing[0].Line)
	assert.Equal(t, "convex/tasks.ts", missing[0].File)

	unindexed := checkProject(t, "schema/unindexed-reference", pc)
	require.Len(t, unindexed, 1)
	assert.Equal(t, 4, unindexed[0].Line)
}

func TestArchitectureFileRules(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path: "convex/big.ts",
		Functions: []facts.ConvexFunction{
			{Name: "a", Kind: facts.Query, HasAuthCheck: true, HandlerLines: 51, Line: 1},
			{Name: "b", Kind: facts.Mutation, HasAuthCheck: true, HandlerLines: 50, Line: 60},
			{Name: "c", Kind: facts.InternalQuery, HasAuthCheck: true, Line: 80},
		},
	}

	large := check(t, "architecture/large-handler", fa)
	require.Len(t, large, 1)
	assert.Contains(t, large[0].Message, `"a"`)

	dup := check(t, "architecture/duplicated-auth", fa)
	require.Len(t, dup, 1)
	assert.Equal(t, 1, dup[0].Line)

	mixed := check(t, "architecture/mixed-visibility", fa)
	require.Len(t, mixed, 1)
	assert.Equal(t, 80, mixed[0].Line)

	fa.HelperFunctionCount = 1
	fa.Functions = fa.Functions[:2]
	assert.Empty(t, check(t, "architecture/large-handler", fa))
	assert.Empty(t, check(t, "architecture/duplicated-auth", fa))
	assert.Empty(t, check(t, "architecture/mixed-visibility", fa))
}

func TestConfigurationRules(t *testing.T) {
	pc := &project.Context{
		Metadata: project.Metadata{
			ConvexDir:    "backend",
			NodeVersion:  "16.20.0",
			EnvFiles:     []string{".env", ".env.local"},
			UnignoredEnv: []string{".env"},
		},
		UsesAuth: true,
	}
	diags := NewRegistry().Enabled(func(id string) bool {
		return len(id) > len("configuration/") && id[:len("configuration/")] == "configuration/"
	}).CheckProject(pc)

	assert.Equal(t, []string{
		"configuration/missing-convex-json",
		"configuration/missing-schema",
		"configuration/missing-tsconfig",
		"configuration/missing-auth-config",
		"configuration/missing-generated",
		"configuration/outdated-node-version",
		"configuration/env-not-gitignored",
	}, ruleIDs(diags))
	assert.Equal(t, "backend/schema.ts", diags[1].File)
	assert.Equal(t, ".env", diags[6].File)
	assert.Equal(t, SeverityError, diags[6].Severity)

	pc.NodeVersion = "20"
	pc.UsesAuth = false
	assert.Empty(t, checkProject(t, "configuration/outdated-node-version", pc))
	assert.Empty(t, checkProject(t, "configuration/missing-auth-config", pc))
}

func TestMissingSchemaDefaultsConvexDir(t *testing.T) {
	diags := checkProject(t, "configuration/missing-schema", &project.Context{})
	require.Len(t, diags, 1)
	assert.Equal(t, "convex/schema.ts", diags[0].File)
	assert.Equal(t, "No schema.ts or schema.js in convex", diags[0].Message)
}

func TestClientRules(t *testing.T) {
	fa := &facts.FileAnalysis{
		Path: "src/App.tsx",
		Hooks: []facts.HookCall{
			{Hook: "useQuery", BoundName: "tasks", Dereferenced: true, Line: 3},
			{Hook: "useQuery", BoundName: "user", Dereferenced: true, LoadingHandled: true, Line: 4},
			{Hook: "useQuery", BoundName: "count", Line: 5},
			{Hook: "useMutation", BoundName: "create", CalledInRender: true, Line: 6},
			{Hook: "useMutation", BoundName: "update", Line: 7},
		},
	}

	loading := check(t, "client/unhandled-loading", fa)
	require.Len(t, loading, 1)
	assert.Equal(t, 3, loading[0].Line)

	render := check(t, "client/mutation-in-render", fa)
	require.Len(t, render, 1)
	assert.Equal(t, 6, render[0].Line)
	assert.Equal(t, SeverityError, render[0].Severity)

	pc := project.Aggregate(project.Metadata{}, []*facts.FileAnalysis{fa})
	provider := checkProject(t, "client/missing-provider", pc)
	require.Len(t, provider, 1)
	assert.Equal(t, "src/App.tsx", provider[0].File)

	pc.ProviderImported = true
	assert.Empty(t, checkProject(t, "client/missing-provider", pc))
}

func TestRulesOnExtractedSource(t *testing.T) {
	src := `import { mutation } from "./_generated/server";

export const save = mutation(async (ctx, args) => {
  for (const item of args.items) {
    ctx.db.insert("items", item);
  }
  return await ctx.db.query("items").filter((q) => q.eq(q.field("done"), false)).collect();
});
`
	fa := analyze(t, "convex/items.ts", src)
	diags := NewRegistry().CheckFile(fa)

	assert.Equal(t, []string{
		"security/missing-args-validator",
		"security/missing-returns-validator",
		"security/missing-auth-check",
		"performance/unbounded-collect",
		"performance/db-filter",
		"performance/calls-in-loop",
		"correctness/unawaited-call",
		"correctness/legacy-function-syntax",
	}, ruleIDs(diags))

	for _, d := range diags {
		assert.Equal(t, "convex/items.ts", d.File)
		assert.Positive(t, d.Line)
		assert.Positive(t, d.Column)
	}
}
