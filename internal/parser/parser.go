// Package parser turns JavaScript and TypeScript sources into tree-sitter syntax trees.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	sharederrors "github.com/scan-io-git/convex-doctor/pkg/shared/errors"
)

// Language identifies the grammar used for a source file.
type Language int

const (
	// LanguageUnknown marks files without a supported extension.
	LanguageUnknown Language = iota
	// LanguageTypeScript covers .ts, .mts and .cts files.
	LanguageTypeScript
	// LanguageTSX covers .tsx files.
	LanguageTSX
	// LanguageJavaScript covers .js, .jsx, .mjs and .cjs files (JSX included).
	LanguageJavaScript
)

// String returns the grammar name.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageTSX:
		return "tsx"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// Extensions lists every file extension the parser accepts.
var Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts", ".mjs", ".cjs"}

// LanguageForPath determines the grammar from the file extension.
func LanguageForPath(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsSupported reports whether the file extension is handled by the parser.
func IsSupported(path string) bool {
	return LanguageForPath(path) != LanguageUnknown
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LanguageTypeScript:
		return typescript.GetLanguage()
	case LanguageTSX:
		return tsx.GetLanguage()
	case LanguageJavaScript:
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// Tree is a parsed source file. Callers must Close it once extraction is done.
type Tree struct {
	tree  *sitter.Tree
	Root  *sitter.Node
	Src   []byte
	Lines *LineIndex
}

// Close releases the tree-sitter memory held by the tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Parse parses src according to the grammar implied by path.
// A syntax error anywhere in the file is reported as *errors.ParseError.
func Parse(ctx context.Context, path string, src []byte) (*Tree, error) {
	lang := LanguageForPath(path)
	if lang == LanguageUnknown {
		return nil, sharederrors.NewParseError(path, 0, 0, fmt.Errorf("unsupported file extension %q", filepath.Ext(path)))
	}

	// tree-sitter parsers are not safe for concurrent use, one per file keeps workers independent
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar(lang))

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, sharederrors.NewParseError(path, 0, 0, err)
	}

	lines := NewLineIndex(src)
	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		line, col := 0, 0
		if bad != nil {
			line, col = lines.Position(int(bad.StartByte()))
		}
		tree.Close()
		return nil, sharederrors.NewParseError(path, line, col, fmt.Errorf("syntax error"))
	}

	return &Tree{tree: tree, Root: root, Src: src, Lines: lines}, nil
}

// firstError returns the first ERROR or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.HasError() && !c.IsMissing() {
			continue
		}
		if found := firstError(c); found != nil {
			return found
		}
	}
	return nil
}
