package listener

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// memBus delivers published data synchronously to the current subscriber.
type memBus struct {
	mu   sync.Mutex
	subs map[string]func([]byte)
}

func newMemBus() *memBus {
	return &memBus{subs: map[string]func([]byte){}}
}

func (b *memBus) Subscribe(subject string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[subject] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, subject)
	}, nil
}

func (b *memBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	h := b.subs[subject]
	b.mu.Unlock()
	if h != nil {
		h(data)
	}
	return nil
}

type fakeConn struct {
	in      chan []byte
	written chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan []byte, 16),
		written: make(chan []byte, 1024),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *fakeConn) WriteFrame(f []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.written <- f:
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type event struct {
	kind string
	id   game.ConnID
	msg  protocol.Message
}

type eventHandler struct {
	events chan event
}

func newEventHandler() *eventHandler {
	return &eventHandler{events: make(chan event, 64)}
}

func (h *eventHandler) OnConnect(_ context.Context, id game.ConnID) error {
	h.events <- event{kind: "connect", id: id}
	return nil
}

func (h *eventHandler) OnDisconnect(_ context.Context, id game.ConnID) error {
	h.events <- event{kind: "disconnect", id: id}
	return nil
}

func (h *eventHandler) OnMessage(_ context.Context, id game.ConnID, msg protocol.Message) error {
	h.events <- event{kind: "message", id: id, msg: msg}
	return nil
}

func (h *eventHandler) next(t *testing.T) event {
	t.Helper()
	select {
	case e := <-h.events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return event{}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}
