package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultReadTimeout  = 60 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	maxFrameSize        = 4 * 1024
)

// WebSocketListener accepts clients over websocket. Every binary message is one frame.
type WebSocketListener struct {
	addr         string
	path         string
	cm           *ConnectionManager
	ready        <-chan struct{}
	readTimeout  time.Duration
	writeTimeout time.Duration

	upgrader websocket.Upgrader
}

type WebSocketListenerOpt func(*WebSocketListener)

// WithReady delays accepting connections until ready is closed.
func WithReady(ready <-chan struct{}) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.ready = ready
	}
}

// WithReadTimeout sets how long a connection may stay silent, pongs included.
func WithReadTimeout(d time.Duration) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.readTimeout = d
	}
}

func WithWriteTimeout(d time.Duration) WebSocketListenerOpt {
	return func(l *WebSocketListener) {
		l.writeTimeout = d
	}
}

func NewWebSocketListener(addr, path string, cm *ConnectionManager, opts ...WebSocketListenerOpt) *WebSocketListener {
	l := &WebSocketListener{
		addr:         addr,
		path:         path,
		cm:           cm,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrameSize,
			WriteBufferSize: maxFrameSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *WebSocketListener) Start(ctx context.Context) error {
	if l.ready != nil {
		select {
		case <-l.ready:
		case <-ctx.Done():
			return nil
		}
	}

	listener, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}

	return l.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled, then waits for every
// connection to finish.
func (l *WebSocketListener) Serve(ctx context.Context, listener net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	var conns connTracker

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(rw http.ResponseWriter, r *http.Request) {
		if !conns.add() {
			http.Error(rw, "shutting down", http.StatusServiceUnavailable)
			return
		}
		defer conns.done()
		l.handle(connCtx, rw, r)
	})
	svr := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stop serving when the parent context is canceled
	go func() {
		<-ctx.Done()
		cancelConns()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svr.Shutdown(shutdownCtx)
	}()

	slog.InfoContext(ctx, "listening for websocket", "addr", listener.Addr().String(), "path", l.path)

	err := svr.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancelConns()
		return fmt.Errorf("serving websocket on %s: %w", l.addr, err)
	}

	conns.closeAndWait()
	return nil
}

// connTracker counts running connection handlers. Once closed it admits no more, so
// waiting on it cannot race with a handler that is just starting.
type connTracker struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (t *connTracker) add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *connTracker) done() {
	t.wg.Done()
}

func (t *connTracker) closeAndWait() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

func (l *WebSocketListener) handle(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "websocket upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newWSConn(ws, l.readTimeout, l.writeTimeout)
	defer conn.Close()

	l.cm.AcceptConnection(ctx, conn)
}

// wsConn adapts a websocket to Conn and keeps it alive with pings.
type wsConn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *wsConn {
	c := &wsConn{
		ws:           ws,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	})

	go c.pingLoop()
	return c
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		select {
		case <-c.done:
			return nil, errConnClosed
		default:
			return nil, err
		}
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))

	// Text messages are not part of the protocol. An empty frame gets the sender struck.
	if typ != websocket.BinaryMessage {
		return nil, nil
	}
	return data, nil
}

func (c *wsConn) WriteFrame(frame []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.readTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			if err != nil {
				return
			}
		}
	}
}
