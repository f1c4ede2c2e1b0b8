package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/elnormous/contenttype"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/ndjson"
	"github.com/GordonDrop/mcpkit/protocol"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// HTTP serves the line protocol over HTTP: each POST /mcp body is one
// envelope and is answered with one response.
type HTTP struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	drainDelay      time.Duration
	maxBodySize     int64
	logger          logging.Logger

	state    *lifecycle
	shutdown *ShutdownManager
	stopCh   chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	listenAddr string
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithReadTimeout sets the read timeout for HTTP requests.
func WithReadTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.readTimeout = d
	}
}

// WithWriteTimeout sets the write timeout for HTTP responses.
func WithWriteTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.writeTimeout = d
	}
}

// WithMaxBodySize bounds the size of a request body.
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTP) {
		h.maxBodySize = n
	}
}

// WithHTTPLogger sets the transport logger.
func WithHTTPLogger(l logging.Logger) HTTPOption {
	return func(h *HTTP) {
		h.logger = l
	}
}

// NewHTTP creates a new HTTP transport listening on addr.
func NewHTTP(addr string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		addr:            addr,
		readTimeout:     30 * time.Second,
		writeTimeout:    30 * time.Second,
		shutdownTimeout: 30 * time.Second,
		maxBodySize:     ndjson.DefaultMaxLineSize,
		logger:          logging.Nop(),
		state:           newLifecycle(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.shutdown = NewShutdownManager(ShutdownConfig{
		Timeout:    h.shutdownTimeout,
		DrainDelay: h.drainDelay,
	})
	return h
}

// Name returns the transport name.
func (h *HTTP) Name() string { return "http" }

// Addr returns the configured address.
func (h *HTTP) Addr() string { return h.addr }

// ListenAddr returns the address the server is listening on once started.
func (h *HTTP) ListenAddr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listenAddr
}

// Start listens on the configured address and serves until Stop or
// cancellation of ctx, then drains in-flight requests.
func (h *HTTP) Start(ctx context.Context, invoke middleware.InvokeFn) error {
	if err := h.state.start(ctx, h.Name()); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		h.state.stop()
		return errors.Wrapf(err, "listen on %s", h.addr)
	}

	h.mu.Lock()
	h.listenAddr = listener.Addr().String()
	h.mu.Unlock()

	srv := &http.Server{
		Handler:      h.Handler(context.WithoutCancel(ctx), invoke),
		ReadTimeout:  h.readTimeout,
		WriteTimeout: h.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	h.logger.Info("[transport] http listening", logging.F("addr", h.ListenAddr()))

	var cause error
	select {
	case <-ctx.Done():
		cause = ctx.Err()
		_ = h.Stop()
	case <-h.stopCh:
	case err := <-errCh:
		_ = h.Stop()
		return err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.shutdown.Shutdown(drainCtx); err != nil {
		h.logger.Warn("[transport] http drain incomplete", logging.Err(err))
	}
	if err := srv.Shutdown(drainCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return cause
}

// Stop stops accepting requests. Start drains in-flight requests before
// returning. Stop is idempotent.
func (h *HTTP) Stop() error {
	h.stopOnce.Do(func() {
		h.state.stop()
		close(h.stopCh)
	})
	return nil
}

// Handler returns the HTTP handler serving /mcp and /health. Calls run
// with ctx as their parent context.
func (h *HTTP) Handler(ctx context.Context, invoke middleware.InvokeFn) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		status, code := "ok", http.StatusOK
		if h.shutdown.IsDraining() {
			status, code = "draining", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = jsoncodec.Encode(w, map[string]string{"status": status})
	})

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		h.handleMCP(ctx, w, r, invoke)
	})

	return mux
}

func (h *HTTP) handleMCP(ctx context.Context, w http.ResponseWriter, r *http.Request, invoke middleware.InvokeFn) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Content-Type") != "" {
		ctype, err := contenttype.GetMediaType(r)
		if err != nil || !ctype.Matches(jsonMediaType) {
			http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
	}
	if !h.shutdown.TrackRequest() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.shutdown.CompleteRequest()

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxBodySize {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp := Dispatch(protocol.ContextWithRequestMeta(ctx, headerMeta(r.Header)), invoke, body)
	if resp == nil {
		resp = protocol.NewErrorResponse(nil, protocol.NewInvalidRequest(protocol.MsgInvalidRequest))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, resp); err != nil {
		h.logger.Error("[transport] write failed", logging.Err(err))
	}
}

// headerMeta flattens request headers into request metadata, keeping the
// first value of each.
func headerMeta(header http.Header) protocol.RequestMeta {
	meta := make(protocol.RequestMeta, len(header))
	for k, v := range header {
		if len(v) > 0 {
			meta[k] = v[0]
		}
	}
	return meta
}
