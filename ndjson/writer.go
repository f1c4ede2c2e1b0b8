package ndjson

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

// Writer encodes values as lines. Concurrent calls to Write never
// interleave.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("ndjson: writer closed")

// Write encodes v and writes it followed by a newline in one call to the
// underlying writer.
func (w *Writer) Write(v any) error {
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "ndjson: encode")
	}
	return w.WriteRaw(data)
}

// WriteRaw writes an already encoded value as one line.
func (w *Writer) WriteRaw(data []byte) error {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	buf[len(data)] = '\n'

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	n, err := w.w.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return errors.Wrap(err, "ndjson: write")
	}
	return nil
}

// Close marks the writer closed and closes the underlying writer when it
// is an io.Closer. Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
