package parser

import (
	"sort"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// LineIndex converts byte offsets into 1-based line and rune columns.
type LineIndex struct {
	src    []byte
	starts []int
}

// NewLineIndex records the byte offset of every line start in src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// Position returns the line (preceding newlines + 1) and column
// (runes from line start + 1) of a byte offset.
func (li *LineIndex) Position(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.src) {
		offset = len(li.src)
	}
	idx := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	col := utf8.RuneCount(li.src[li.starts[idx]:offset]) + 1
	return idx + 1, col
}

// Line returns only the line number of a byte offset.
func (li *LineIndex) Line(offset int) int {
	line, _ := li.Position(offset)
	return line
}

// NodePosition returns the start line and column of a node.
func (li *LineIndex) NodePosition(n *sitter.Node) (int, int) {
	return li.Position(int(n.StartByte()))
}

// NodeLines returns the inclusive number of lines spanned by a node.
func (li *LineIndex) NodeLines(n *sitter.Node) int {
	start := li.Line(int(n.StartByte()))
	end := li.Line(int(n.EndByte()))
	return end - start + 1
}
