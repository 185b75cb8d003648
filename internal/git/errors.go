package git

import "errors"

// Diff base errors
var (
	ErrNotRepository   = errors.New("not inside a git repository")
	ErrEmptyRevision   = errors.New("base revision is required to compute diff")
	ErrUnknownRevision = errors.New("failed to resolve revision")
)
