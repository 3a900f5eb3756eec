package listener

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/messaging"
	"github.com/pixil98/go-blockdemo/internal/protocol"
	"github.com/pixil98/go-blockdemo/internal/routing"
)

const (
	DefaultMaxStrikes = 3
	DefaultQueueSize  = 256
)

// Conn is one framed, bidirectional client connection.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame([]byte) error
	Close() error
}

// Subscriber provides the ability to subscribe to message subjects
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// ConnectionManager owns the live connection set. It assigns identities, raises
// connect, message and disconnect events, and enforces the strike limit.
type ConnectionManager struct {
	handler    routing.Handler
	bus        Subscriber
	maxStrikes int
	queueSize  int

	mu       sync.RWMutex
	sessions map[game.ConnID]*session
	lastId   game.ConnID
}

type ConnectionManagerOpt func(*ConnectionManager)

// WithMaxStrikes sets how many protocol violations a connection survives.
func WithMaxStrikes(n int) ConnectionManagerOpt {
	return func(m *ConnectionManager) {
		m.maxStrikes = n
	}
}

// WithQueueSize sets the per-connection outbound queue length.
func WithQueueSize(n int) ConnectionManagerOpt {
	return func(m *ConnectionManager) {
		m.queueSize = n
	}
}

func NewConnectionManager(bus Subscriber, opts ...ConnectionManagerOpt) *ConnectionManager {
	m := &ConnectionManager{
		bus:        bus,
		maxStrikes: DefaultMaxStrikes,
		queueSize:  DefaultQueueSize,
		sessions:   map[game.ConnID]*session{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetHandler sets the handler that receives connection events. It must be called
// before the first connection is accepted.
func (m *ConnectionManager) SetHandler(h routing.Handler) {
	m.handler = h
}

// Connections returns the live connection ids in ascending order.
func (m *ConnectionManager) Connections() []game.ConnID {
	m.mu.RLock()
	ids := make([]game.ConnID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Strike records a protocol violation. The connection is closed once it reaches the
// strike limit.
func (m *ConnectionManager) Strike(id game.ConnID, reason string) {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return
	}

	n := int(s.strikes.Add(1))
	slog.Warn("connection struck", "conn", id, "session", s.sid, "reason", reason, "strikes", n)
	if m.maxStrikes > 0 && n >= m.maxStrikes {
		slog.Warn("disconnecting connection after too many strikes", "conn", id, "session", s.sid)
		s.close()
	}
}

// Disconnect closes the connection for id. Its disconnect event follows once the read
// loop notices.
func (m *ConnectionManager) Disconnect(id game.ConnID, reason string) {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return
	}

	slog.Warn("disconnecting connection", "conn", id, "session", s.sid, "reason", reason)
	s.close()
}

// DropSlowConsumer disconnects the connection whose outbound subject had messages
// dropped by the bus.
func (m *ConnectionManager) DropSlowConsumer(subject string) {
	id, ok := messaging.ParseConnSubject(subject)
	if !ok {
		return
	}
	m.Disconnect(id, "slow consumer")
}

// AcceptConnection runs one connection until it closes or ctx is canceled.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn Conn) {
	s := &session{
		sid:  uuid.New(),
		conn: conn,
		out:  make(chan []byte, m.queueSize),
		done: make(chan struct{}),
	}
	m.register(s)
	logger := slog.With("conn", s.id, "session", s.sid)

	// A client that cannot keep up is dropped rather than left with a gap in its stream.
	unsub, err := m.bus.Subscribe(messaging.ConnSubject(s.id), func(frame []byte) {
		if !s.enqueue(frame) {
			logger.Warn("outbound queue full, disconnecting")
			s.close()
		}
	})
	if err != nil {
		logger.ErrorContext(ctx, "subscribing connection", "error", err)
		m.deregister(s.id)
		s.close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop(logger)
	}()
	// Close the connection when the context is canceled.
	// This unblocks the read loop below.
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.close()
		case <-s.done:
		}
	}()

	logger.InfoContext(ctx, "connection established")
	_ = m.handler.OnConnect(ctx, s.id)

	m.readLoop(ctx, s, logger)

	// Disconnect handling must run even though ctx may already be canceled.
	m.deregister(s.id)
	_ = m.handler.OnDisconnect(context.WithoutCancel(ctx), s.id)
	unsub()
	s.close()
	wg.Wait()

	logger.InfoContext(ctx, "connection closed", "strikes", s.strikes.Load())
}

func (m *ConnectionManager) readLoop(ctx context.Context, s *session, logger *slog.Logger) {
	for {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			if !errors.Is(err, errConnClosed) {
				logger.DebugContext(ctx, "reading frame", "error", err)
			}
			return
		}

		msg, err := protocol.DecodeFrame(frame)
		if err != nil {
			m.Strike(s.id, "undecodable frame")
			continue
		}

		_ = m.handler.OnMessage(ctx, s.id, msg)
	}
}

// register assigns s the lowest unused id after the last one handed out and makes
// it live.
func (m *ConnectionManager) register(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		m.lastId++
		if m.lastId == 0 {
			continue
		}
		if _, taken := m.sessions[m.lastId]; taken {
			continue
		}
		break
	}
	s.id = m.lastId
	m.sessions[s.id] = s
}

func (m *ConnectionManager) deregister(id game.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
