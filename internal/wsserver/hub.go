package wsserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codeworkspace/internal/workspace"
)

const (
	writeDeadline = 5 * time.Second
	// readDeadline allows about three missed pings before the client is dropped.
	readDeadline       = 90 * time.Second
	pingInterval       = 30 * time.Second
	maxReadMessageSize = 1 << 20
)

var wsUpgrader = websocket.Upgrader{
	// The server binds to loopback by default; any local page may connect.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
}

// Dispatcher executes client commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd workspace.Command) error
}

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. "127.0.0.1:0" picks a free loopback port.
	Addr string
	// Handlers are extra routes served next to /ws (for example /metrics).
	Handlers map[string]http.Handler
	// OnConnect runs after a client connection becomes current, outside hub
	// locks. Typically it emits a full snapshot.
	OnConnect func()
}

// Hub serves a single WebSocket client. A new connection replaces the
// current one so a page reload simply reconnects.
//
// Lock ordering: writeMu -> mu. gorilla/websocket allows one concurrent
// writer, so every write holds writeMu.
type Hub struct {
	opts HubOptions

	mu         sync.RWMutex
	conn       *websocket.Conn
	dispatcher Dispatcher

	writeMu sync.Mutex

	server *http.Server
	url    string

	closeOnce sync.Once
}

// NewHub creates a Hub. It serves nothing until Start, or until it is mounted
// as an http.Handler.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{opts: opts}
}

// SetDispatcher installs the command target. The session usually needs the
// hub as its emitter first, so this is set after construction.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	h.dispatcher = d
	h.mu.Unlock()
}

// Start listens on the configured address and serves /ws plus the extra
// handlers. ctx becomes the base context of every request.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("wsserver: already started")
	}
	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	for pattern, handler := range h.opts.Handlers {
		mux.Handle(pattern, handler)
	}
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[ERROR-WS] server error", "error", serveErr)
		}
	}()
	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop closes the client connection and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()
		if conn != nil {
			h.closeConn(conn, "hub stop")
		}
		if h.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(ctx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a client is connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// Emit sends an event to the connected client. Without a client it does
// nothing. It satisfies workspace.EventEmitter.
func (h *Hub) Emit(name string, payload any) {
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		slog.Debug("[DEBUG-WS] emit skipped: no connection", "event", name)
		return
	}
	h.send(conn, name, payload)
}

func (h *Hub) send(conn *websocket.Conn, name string, payload any) {
	frame, err := EncodeEvent(name, payload)
	if err != nil {
		slog.Warn("[WARN-WS] failed to encode event", "event", name, "error", err)
		return
	}
	if err := h.write(conn, websocket.TextMessage, frame); err != nil {
		h.drop(conn, "write error")
		slog.Warn("[WARN-WS] write failed, connection closed", "event", name, "error", err)
	}
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	err := conn.WriteMessage(messageType, data)
	if clearErr := conn.SetWriteDeadline(time.Time{}); clearErr != nil {
		slog.Debug("[DEBUG-WS] clear write deadline failed", "error", clearErr)
	}
	return err
}

// clearIfCurrent forgets conn if it is still the current connection.
func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return false
	}
	h.conn = nil
	return true
}

func (h *Hub) drop(conn *websocket.Conn, reason string) {
	h.clearIfCurrent(conn)
	h.closeConn(conn, reason)
}

// closeConn tolerates double closes; a replaced connection is closed by both
// the replacing handler and its own read pump.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", err)
	}
}

// ServeHTTP upgrades the request and runs the read pump until the client
// disconnects or is replaced.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[WARN-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		h.closeConn(conn, "initial read deadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	old := h.conn
	h.conn = conn
	h.mu.Unlock()
	if old != nil {
		h.closeConn(old, "replaced by new connection")
	}
	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver read pump recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.drop(conn, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	if h.opts.OnConnect != nil {
		h.opts.OnConnect()
	}
	h.readPump(r.Context(), conn)
}

func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[WARN-WS] read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		cmd, err := DecodeCommand(msg)
		if err != nil {
			slog.Debug("[DEBUG-WS] invalid command frame", "error", err)
			h.send(conn, EventError, ErrorPayload{Message: err.Error()})
			continue
		}
		h.mu.RLock()
		current := h.conn == conn
		dispatcher := h.dispatcher
		h.mu.RUnlock()
		if !current {
			slog.Debug("[DEBUG-WS] command from replaced connection ignored", "command", cmd.Name)
			return
		}
		if dispatcher == nil {
			h.send(conn, EventError, ErrorPayload{Command: cmd.Name, Message: "no session attached"})
			continue
		}
		if err := dispatcher.Dispatch(ctx, cmd); err != nil {
			h.send(conn, EventError, ErrorPayload{Command: cmd.Name, Message: err.Error()})
		}
	}
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.drop(conn, "pingLoop panic recovery")
		}
	}()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", err)
				h.drop(conn, "ping failure")
				return
			}
		}
	}
}
