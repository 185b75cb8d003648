package rules

import (
	"path"

	"github.com/scan-io-git/convex-doctor/internal/project"
)

// minNodeMajor is the oldest Node.js major supported by the Convex runtime.
const minNodeMajor = 18

func configurationRules() []Rule {
	return []Rule{
		&missingConvexJSON{base{
			id: "configuration/missing-convex-json", category: Configuration, severity: SeverityInfo,
			description: "No convex.json",
			help:        "Add convex.json to pin the functions directory and Node.js settings.",
		}},
		&missingSchema{base{
			id: "configuration/missing-schema", category: Configuration, severity: SeverityWarning,
			description: "No schema definition",
			help:        "Add convex/schema.ts with defineSchema(...) so documents are validated and typed.",
		}},
		&missingTSConfig{base{
			id: "configuration/missing-tsconfig", category: Configuration, severity: SeverityInfo,
			description: "No tsconfig.json",
			help:        "Add a tsconfig.json so Convex functions are type-checked.",
		}},
		&missingAuthConfig{base{
			id: "configuration/missing-auth-config", category: Configuration, severity: SeverityWarning,
			description: "ctx.auth used without auth.config",
			help:        "Add convex/auth.config.ts listing your identity providers; without it ctx.auth never returns a user.",
		}},
		&missingGenerated{base{
			id: "configuration/missing-generated", category: Configuration, severity: SeverityWarning,
			description: "No _generated directory",
			help:        "Run `npx convex dev` or `npx convex codegen` to generate the typed API.",
		}},
		&outdatedNodeVersion{base{
			id: "configuration/outdated-node-version", category: Configuration, severity: SeverityWarning,
			description: "Pinned Node.js version is too old",
			help:        "Pin Node.js 18 or newer.",
		}},
		&envNotGitignored{base{
			id: "configuration/env-not-gitignored", category: Configuration, severity: SeverityError,
			description: "Env file not covered by .gitignore",
			help:        "Add the env file to .gitignore and rotate any secrets that were committed.",
		}},
	}
}

func convexFile(pc *project.Context, name string) string {
	return path.Join(convexDir(pc), name)
}

func convexDir(pc *project.Context) string {
	if pc.ConvexDir == "" {
		return "convex"
	}
	return pc.ConvexDir
}

type missingConvexJSON struct{ base }

func (r *missingConvexJSON) CheckProject(pc *project.Context) []Diagnostic {
	if pc.HasConvexJSON {
		return nil
	}
	return []Diagnostic{r.atFile("convex.json", "convex.json not found")}
}

type missingSchema struct{ base }

func (r *missingSchema) CheckProject(pc *project.Context) []Diagnostic {
	if pc.HasSchema {
		return nil
	}
	return []Diagnostic{r.atFile(convexFile(pc, "schema.ts"), "No schema.ts or schema.js in %s", convexDir(pc))}
}

type missingTSConfig struct{ base }

func (r *missingTSConfig) CheckProject(pc *project.Context) []Diagnostic {
	if pc.HasTSConfig {
		return nil
	}
	return []Diagnostic{r.atFile("tsconfig.json", "tsconfig.json not found")}
}

type missingAuthConfig struct{ base }

func (r *missingAuthConfig) CheckProject(pc *project.Context) []Diagnostic {
	if !pc.UsesAuth || pc.HasAuthConfig {
		return nil
	}
	return []Diagnostic{r.atFile(convexFile(pc, "auth.config.ts"), "ctx.auth is used but no auth.config.ts exists")}
}

type missingGenerated struct{ base }

func (r *missingGenerated) CheckProject(pc *project.Context) []Diagnostic {
	if pc.HasGeneratedDir {
		return nil
	}
	return []Diagnostic{r.atFile(convexFile(pc, "_generated"), "Generated code directory is missing")}
}

type outdatedNodeVersion struct{ base }

func (r *outdatedNodeVersion) CheckProject(pc *project.Context) []Diagnostic {
	major, ok := project.NodeMajor(pc.NodeVersion)
	if !ok || major >= minNodeMajor {
		return nil
	}
	return []Diagnostic{r.atFile("convex.json", "Node.js %s is pinned (minimum %d)", pc.NodeVersion, minNodeMajor)}
}

type envNotGitignored struct{ base }

func (r *envNotGitignored) CheckProject(pc *project.Context) []Diagnostic {
	if pc.GitignoredEnv {
		return nil
	}
	var out []Diagnostic
	for _, name := range pc.UnignoredEnv {
		out = append(out, r.atFile(name, "%s is not listed in .gitignore", name))
	}
	return out
}
