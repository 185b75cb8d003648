package project

import (
	"sort"
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/facts"
)

// Aggregate folds every file's facts and the detected metadata into one Context.
// Files are visited in path order so the result does not depend on the order
// in which workers finished.
func Aggregate(meta Metadata, files []*facts.FileAnalysis) *Context {
	sorted := make([]*facts.FileAnalysis, 0, len(files))
	for _, fa := range files {
		if fa != nil {
			sorted = append(sorted, fa)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	pc := &Context{Metadata: meta, FileCount: len(sorted)}
	for _, fa := range sorted {
		pc.Tables = append(pc.Tables, fa.Tables...)
		pc.Indexes = append(pc.Indexes, fa.Indexes...)
		pc.SearchIndexes = append(pc.SearchIndexes, fa.SearchIndexes...)
		pc.IDFields = append(pc.IDFields, fa.IDFields...)
		pc.FilterFields = append(pc.FilterFields, fa.FilterFields...)
		for _, hook := range fa.Hooks {
			pc.HookSites = append(pc.HookSites, FileSite{File: fa.Path, Hook: hook.Hook, Line: hook.Line, Column: hook.Column})
		}
		pc.ProviderImported = pc.ProviderImported || fa.HasProviderImport
		pc.UsesAuth = pc.UsesAuth || usesAuth(fa)
	}
	return pc
}

func usesAuth(fa *facts.FileAnalysis) bool {
	for _, fn := range fa.Functions {
		if fn.HasAuthCheck {
			return true
		}
	}
	for _, call := range fa.CtxCalls {
		if strings.HasPrefix(call.Chain, "ctx.auth.") {
			return true
		}
	}
	return false
}
