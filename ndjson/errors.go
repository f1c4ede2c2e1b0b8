package ndjson

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyLine is the cause of a ParseError for blank lines when the
	// reader keeps them.
	ErrEmptyLine = errors.New("empty line encountered")
	// ErrLineTooLong is the cause of a ParseError for lines longer than the
	// reader's limit.
	ErrLineTooLong = errors.New("line exceeds maximum size")
)

// ParseError reports a line that is not valid JSON. The reader stays
// usable after returning one.
type ParseError struct {
	// Line is the 1-based line number in the stream.
	Line int
	// Err is the underlying decode error.
	Err error
	// Partial holds the offending line, truncated for oversized lines.
	Partial string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ndjson: parse error at line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
