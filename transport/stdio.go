package transport

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/ndjson"
	"github.com/GordonDrop/mcpkit/protocol"
)

// Stdio serves the line protocol over a byte stream pair, by default
// stdin and stdout.
type Stdio struct {
	in          io.Reader
	out         io.Writer
	logger      logging.Logger
	maxLineSize int

	state    *lifecycle
	writer   *ndjson.Writer
	stopCh   chan struct{}
	stopOnce sync.Once

	// waitMu orders inflight.Add against Wait: an Add happens either
	// before a Wait starts or after it returns.
	waitMu   sync.Mutex
	inflight sync.WaitGroup
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithReader sets the input stream. Stop closes r when it is an
// io.Closer. Otherwise a read blocked in r when Start returns keeps its
// goroutine until r yields the next line or end of input; that line is
// discarded.
func WithReader(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithWriter sets the output stream.
func WithWriter(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = w
	}
}

// WithLogger sets the transport logger.
func WithLogger(l logging.Logger) StdioOption {
	return func(s *Stdio) {
		s.logger = l
	}
}

// WithMaxLineSize bounds the size of an input line.
func WithMaxLineSize(n int) StdioOption {
	return func(s *Stdio) {
		s.maxLineSize = n
	}
}

// NewStdio creates a new stdio transport.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:          os.Stdin,
		out:         os.Stdout,
		logger:      logging.Nop(),
		maxLineSize: ndjson.DefaultMaxLineSize,
		state:       newLifecycle(),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = ndjson.NewWriter(s.out)
	return s
}

// Name returns the transport name.
func (s *Stdio) Name() string { return "stdio" }

// State returns the lifecycle state: idle, running or stopped.
func (s *Stdio) State() string { return s.state.current() }

type readResult struct {
	raw json.RawMessage
	err error
}

// Start reads envelopes until end of input, Stop, or cancellation of ctx.
// Each line is handled on its own goroutine. At end of input Start waits
// for in-flight lines and returns nil.
func (s *Stdio) Start(ctx context.Context, invoke middleware.InvokeFn) error {
	if err := s.state.start(ctx, s.Name()); err != nil {
		return err
	}
	s.logger.Info("[transport] stdio started")

	// Handlers outlive Stop and cancellation of ctx.
	callCtx := context.WithoutCancel(ctx)

	reader := ndjson.NewReader(s.in, ndjson.WithMaxLineSize(s.maxLineSize))
	lines := make(chan readResult)
	go func() {
		for {
			raw, err := reader.Next()
			select {
			case lines <- readResult{raw: raw, err: err}:
			case <-s.stopCh:
				return
			}
			if err != nil && !ndjson.IsParseError(err) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.Stop()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case r := <-lines:
			switch {
			case r.err == nil:
				s.track()
				go s.handle(callCtx, invoke, r.raw)
			case ndjson.IsParseError(r.err):
				s.logger.Warn("[transport] malformed line", logging.Err(r.err))
				s.write(protocol.NewErrorResponse(nil, protocol.NewParseError(protocol.MsgParseError)))
			case errors.Is(r.err, io.EOF):
				s.inflight.Wait()
				s.state.stop()
				s.logger.Info("[transport] stdio input closed")
				return nil
			default:
				s.inflight.Wait()
				_ = s.Stop()
				return errors.Wrap(r.err, "read input")
			}
		}
	}
}

func (s *Stdio) handle(ctx context.Context, invoke middleware.InvokeFn, raw json.RawMessage) {
	defer s.inflight.Done()
	if resp := Dispatch(ctx, invoke, raw); resp != nil {
		s.write(resp)
	}
}

func (s *Stdio) write(resp *protocol.Response) {
	if err := s.writer.Write(resp); err != nil {
		s.logger.Error("[transport] write failed", logging.Err(err))
	}
}

// Stop stops reading and closes the input when it is an io.Closer. Calls
// already in flight still write their responses. Stop is idempotent.
func (s *Stdio) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.state.stop()
		close(s.stopCh)
		if c, ok := s.in.(io.Closer); ok && s.in != os.Stdin {
			err = c.Close()
		}
		s.logger.Info("[transport] stdio stopped")
	})
	return err
}

func (s *Stdio) track() {
	s.waitMu.Lock()
	s.inflight.Add(1)
	s.waitMu.Unlock()
}

// Wait blocks until every line handed to the invoker so far has been
// answered. It may be called at any time, including while Start is
// reading; lines read after Wait returns are not covered.
func (s *Stdio) Wait() {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()
	s.inflight.Wait()
}
