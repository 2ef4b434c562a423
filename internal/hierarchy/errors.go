package hierarchy

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the caller's context ends before a
	// computation finishes. A cancelled computation has no result.
	ErrCancelled = errors.New("hierarchy computation cancelled")

	// ErrNoIndex is returned when a computer is used without an index.
	ErrNoIndex = errors.New("type index is not available")
)

// QueryError reports a failed index query during descendant traversal.
type QueryError struct {
	Op   string
	Type string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s(%s) failed: %v", e.Op, e.Type, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err means the computation was cancelled rather
// than failed.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
