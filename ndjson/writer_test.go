package ndjson

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	return w.buf.Write(p)
}

type closingWriter struct {
	bytes.Buffer
	closed int
}

func (w *closingWriter) Close() error {
	w.closed++
	return nil
}

func TestWriter_Write(t *testing.T) {
	cw := &countingWriter{}
	w := NewWriter(cw)

	require.NoError(t, w.Write(map[string]any{"a": 1}))
	require.NoError(t, w.Write("x"))

	assert.Equal(t, "{\"a\":1}\n\"x\"\n", cw.buf.String())
	assert.Equal(t, 2, cw.writes)
}

func TestWriter_ConcurrentLinesStayWhole(t *testing.T) {
	cw := &countingWriter{}
	w := NewWriter(cw)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Write(map[string]any{"i": i, "pad": strings.Repeat("p", 512)}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cw.writes)
	r := NewReader(&cw.buf)
	for i := 0; i < 100; i++ {
		_, err := r.Next()
		require.NoError(t, err, "line %d", i+1)
	}
}

func TestWriter_EncodeError(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	assert.Error(t, w.Write(make(chan int)))
}

func TestWriter_Close(t *testing.T) {
	cw := &closingWriter{}
	w := NewWriter(cw)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, cw.closed)

	err := w.Write("late")
	assert.True(t, errors.Is(err, ErrClosed))
}
