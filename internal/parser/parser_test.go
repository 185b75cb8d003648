package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharederrors "github.com/scan-io-git/convex-doctor/pkg/shared/errors"
)

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"convex/messages.ts", LanguageTypeScript},
		{"convex/messages.mts", LanguageTypeScript},
		{"convex/messages.cts", LanguageTypeScript},
		{"src/App.tsx", LanguageTSX},
		{"src/App.jsx", LanguageJavaScript},
		{"convex/util.mjs", LanguageJavaScript},
		{"convex/util.cjs", LanguageJavaScript},
		{"convex/util.JS", LanguageJavaScript},
		{"README.md", LanguageUnknown},
		{"convex/schema", LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageForPath(tt.path))
		})
	}
}

func TestLineIndexPosition(t *testing.T) {
	src := []byte("ab\nçd = 1\n\nx")
	li := NewLineIndex(src)

	tests := []struct {
		name   string
		offset int
		line   int
		column int
	}{
		{"start of file", 0, 1, 1},
		{"second byte", 1, 1, 2},
		{"start of line two", 3, 2, 1},
		{"after multibyte rune", 5, 2, 2},
		{"empty line", 11, 3, 1},
		{"last line", 12, 4, 1},
		{"past end clamps", 100, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := li.Position(tt.offset)
			assert.Equal(t, tt.line, line)
			assert.Equal(t, tt.column, col)
		})
	}
}

func TestParse(t *testing.T) {
	src := []byte("export const x = query({ args: {}, handler: async (ctx) => 1 });\n")
	tree, err := Parse(context.Background(), "convex/x.ts", src)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, "program", tree.Root.Type())
	assert.Equal(t, uint32(1), tree.Root.NamedChildCount())
}

func TestParseSyntaxError(t *testing.T) {
	src := []byte("export const x = query({ args: {}\n\nhandler: ")
	_, err := Parse(context.Background(), "convex/broken.ts", src)
	require.Error(t, err)

	var parseErr *sharederrors.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "convex/broken.ts", parseErr.Path)
	assert.Greater(t, parseErr.Line, 0)
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, err := Parse(context.Background(), "notes.txt", []byte("hello"))
	var parseErr *sharederrors.ParseError
	require.True(t, errors.As(err, &parseErr))
}
