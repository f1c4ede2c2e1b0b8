package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/protocol"
)

// WebSocket serves the line protocol over WebSocket connections. Each
// text message carries one envelope.
type WebSocket struct {
	addr     string
	upgrader websocket.Upgrader
	logger   logging.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	state    *lifecycle
	stopCh   chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup

	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	listenAddr string
}

// wsClient serializes writes to a single connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(resp *protocol.Response, timeout time.Duration) error {
	data, err := jsoncodec.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithWebSocketReadTimeout sets the idle read timeout per connection.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.readTimeout = d
	}
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.writeTimeout = d
	}
}

// WithWebSocketCheckOrigin sets the origin check function for upgrades.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(ws *WebSocket) {
		ws.upgrader.CheckOrigin = fn
	}
}

// WithWebSocketLogger sets the transport logger.
func WithWebSocketLogger(l logging.Logger) WebSocketOption {
	return func(ws *WebSocket) {
		ws.logger = l
	}
}

// NewWebSocket creates a new WebSocket transport.
func NewWebSocket(addr string, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:       logging.Nop(),
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		state:        newLifecycle(),
		stopCh:       make(chan struct{}),
		clients:      make(map[*wsClient]struct{}),
	}

	for _, opt := range opts {
		opt(ws)
	}

	return ws
}

// Name returns the transport name.
func (ws *WebSocket) Name() string { return "websocket" }

// Addr returns the configured address.
func (ws *WebSocket) Addr() string { return ws.addr }

// ListenAddr returns the address the server is listening on once started.
func (ws *WebSocket) ListenAddr() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.listenAddr
}

// Start accepts connections until Stop or cancellation of ctx.
func (ws *WebSocket) Start(ctx context.Context, invoke middleware.InvokeFn) error {
	if err := ws.state.start(ctx, ws.Name()); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		ws.state.stop()
		return errors.Wrapf(err, "listen on %s", ws.addr)
	}

	ws.mu.Lock()
	ws.listenAddr = listener.Addr().String()
	ws.mu.Unlock()

	callCtx := context.WithoutCancel(ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws.handleConnection(callCtx, w, r, invoke)
	})
	srv := &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	ws.logger.Info("[transport] websocket listening", logging.F("addr", ws.ListenAddr()))

	var cause error
	select {
	case <-ctx.Done():
		cause = ctx.Err()
		_ = ws.Stop()
	case <-ws.stopCh:
	case err := <-errCh:
		_ = ws.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	ws.closeAllClients()
	ws.inflight.Wait()
	if err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return cause
}

// Stop stops accepting connections and closes open ones. Stop is
// idempotent.
func (ws *WebSocket) Stop() error {
	ws.stopOnce.Do(func() {
		ws.state.stop()
		close(ws.stopCh)
		ws.closeAllClients()
	})
	return nil
}

func (ws *WebSocket) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, invoke middleware.InvokeFn) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("[transport] websocket upgrade failed", logging.Err(err))
		return
	}

	client := &wsClient{conn: conn}
	ws.mu.Lock()
	ws.clients[client] = struct{}{}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, client)
		ws.mu.Unlock()
		_ = conn.Close()
	}()

	ctx = protocol.ContextWithRequestMeta(ctx, headerMeta(r.Header))

	for {
		if ws.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ws.inflight.Add(1)
		go func() {
			defer ws.inflight.Done()
			resp := Dispatch(ctx, invoke, data)
			if resp == nil {
				return
			}
			if err := client.send(resp, ws.writeTimeout); err != nil {
				ws.logger.Warn("[transport] websocket write failed", logging.Err(err))
			}
		}()
	}
}

func (ws *WebSocket) closeAllClients() {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	for client := range ws.clients {
		client.mu.Lock()
		_ = client.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.mu.Unlock()
		_ = client.conn.Close()
	}
}

// ClientCount returns the number of open connections.
func (ws *WebSocket) ClientCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.clients)
}
