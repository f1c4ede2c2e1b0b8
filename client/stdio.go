package client

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/ndjson"
	"github.com/GordonDrop/mcpkit/protocol"
)

// PipeTransport writes requests as lines to w and matches response lines
// read from r to pending requests by id.
type PipeTransport struct {
	writer *ndjson.Writer
	closer io.Closer

	mu      sync.Mutex
	pending map[string]chan *protocol.RawResponse
	closed  bool

	done    chan struct{}
	readErr error
	readWG  sync.WaitGroup
}

// NewPipeTransport creates a transport over an existing pair of streams.
// Closing the transport closes w when it is an io.Closer.
func NewPipeTransport(r io.Reader, w io.Writer) *PipeTransport {
	t := &PipeTransport{
		writer:  ndjson.NewWriter(w),
		pending: make(map[string]chan *protocol.RawResponse),
		done:    make(chan struct{}),
	}
	t.readWG.Add(1)
	go t.readResponses(ndjson.NewReader(r))
	return t
}

// Send writes req and waits for the response with the same id.
func (t *PipeTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.RawResponse, error) {
	key := idKey(req.ID)
	ch := make(chan *protocol.RawResponse, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.pending[key] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}()

	if err := t.writer.Write(req); err != nil {
		return nil, errors.Wrap(err, "write request")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-ch:
		return resp, nil
	case <-t.done:
		// A response may have arrived just before the input ended.
		select {
		case resp := <-ch:
			return resp, nil
		default:
		}
		if t.readErr != nil {
			return nil, errors.Wrap(t.readErr, "read response")
		}
		return nil, ErrClosed
	}
}

// Close stops accepting requests and closes the output stream.
func (t *PipeTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.writer.Close()
}

func (t *PipeTransport) readResponses(r *ndjson.Reader) {
	defer t.readWG.Done()
	defer close(t.done)

	for {
		var resp protocol.RawResponse
		err := r.Decode(&resp)
		switch {
		case err == nil:
		case ndjson.IsParseError(err):
			continue
		case errors.Is(err, io.EOF):
			return
		default:
			t.readErr = err
			return
		}

		t.mu.Lock()
		if ch, ok := t.pending[idKey(resp.ID)]; ok {
			ch <- &resp
		}
		t.mu.Unlock()
	}
}

func idKey(id []byte) string {
	return string(bytes.TrimSpace(id))
}

// StdioTransport runs a server as a subprocess and talks to it over its
// standard input and output.
type StdioTransport struct {
	*PipeTransport
	cmd    *exec.Cmd
	stderr io.ReadCloser
}

// NewStdioTransport starts command and connects to its stdio.
func NewStdioTransport(command string, args ...string) (*StdioTransport, error) {
	return NewStdioTransportCmd(exec.Command(command, args...))
}

// NewStdioTransportCmd starts a prepared command and connects to its
// stdio. The command must not have Stdin, Stdout or Stderr set.
func NewStdioTransportCmd(cmd *exec.Cmd) (*StdioTransport, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start command")
	}

	return &StdioTransport{
		PipeTransport: NewPipeTransport(stdout, stdin),
		cmd:           cmd,
		stderr:        stderr,
	}, nil
}

// Close closes the subprocess's stdin, waits for it to drain its output
// and exit. Close is idempotent.
func (t *StdioTransport) Close() error {
	t.PipeTransport.mu.Lock()
	already := t.PipeTransport.closed
	t.PipeTransport.mu.Unlock()
	if already {
		return nil
	}

	_ = t.PipeTransport.Close()
	t.readWG.Wait()
	return t.cmd.Wait()
}

// Stderr returns the stderr reader for the subprocess.
func (t *StdioTransport) Stderr() io.Reader {
	return t.stderr
}
