package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

// DefaultMaxLineSize bounds a single line.
const DefaultMaxLineSize = 1024 * 1024

const partialLimit = 256

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxLineSize limits the size of a line in bytes.
func WithMaxLineSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

// WithKeepEmptyLines makes blank lines surface as ParseErrors wrapping
// ErrEmptyLine instead of being skipped.
func WithKeepEmptyLines() ReaderOption {
	return func(r *Reader) {
		r.skipEmpty = false
	}
}

// Reader yields JSON values from a line-delimited stream. It is not safe
// for concurrent use.
type Reader struct {
	br          *bufio.Reader
	line        int
	maxLineSize int
	skipEmpty   bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		br:          bufio.NewReader(r),
		maxLineSize: DefaultMaxLineSize,
		skipEmpty:   true,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Line returns the number of the last line read.
func (r *Reader) Line() int { return r.line }

// ReadLine returns the next line with surrounding whitespace trimmed. It
// does not check that the line is JSON. Oversized lines are consumed and
// reported as a *ParseError wrapping ErrLineTooLong.
func (r *Reader) ReadLine() ([]byte, error) {
	var buf bytes.Buffer
	tooLong := false
	for {
		chunk, isPrefix, err := r.br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (buf.Len() > 0 || tooLong) {
				break
			}
			return nil, err
		}
		if !tooLong {
			if buf.Len()+len(chunk) > r.maxLineSize {
				tooLong = true
				remaining := partialLimit - buf.Len()
				if remaining > 0 {
					buf.Write(chunk[:min(remaining, len(chunk))])
				}
			} else {
				buf.Write(chunk)
			}
		}
		if !isPrefix {
			break
		}
	}
	r.line++

	if tooLong {
		return nil, &ParseError{Line: r.line, Err: ErrLineTooLong, Partial: buf.String()}
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Next returns the next JSON value. Blank lines are skipped unless the
// reader keeps them. A malformed line yields a *ParseError; the following
// call continues with the next line. At end of input Next returns io.EOF.
func (r *Reader) Next() (json.RawMessage, error) {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			if r.skipEmpty {
				continue
			}
			return nil, &ParseError{Line: r.line, Err: ErrEmptyLine}
		}
		if !jsoncodec.Valid(line) {
			return nil, &ParseError{Line: r.line, Err: syntaxError(line), Partial: truncate(line)}
		}
		return json.RawMessage(line), nil
	}
}

// Decode reads the next value into v.
func (r *Reader) Decode(v any) error {
	raw, err := r.Next()
	if err != nil {
		return err
	}
	if err := jsoncodec.Unmarshal(raw, v); err != nil {
		return &ParseError{Line: r.line, Err: err, Partial: truncate(raw)}
	}
	return nil
}

// syntaxError recovers a descriptive error for an invalid line.
func syntaxError(line []byte) error {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

func truncate(b []byte) string {
	if len(b) > partialLimit {
		return string(b[:partialLimit])
	}
	return string(b)
}
