package listener

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/pixil98/go-blockdemo/internal/game"
)

var errConnClosed = errors.New("connection closed")

type session struct {
	id   game.ConnID
	sid  uuid.UUID
	conn Conn

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once

	strikes atomic.Int32
}

// enqueue adds a frame to the outbound queue without blocking. It reports false when
// the queue is full; a closed session accepts and discards everything.
func (s *session) enqueue(frame []byte) bool {
	select {
	case s.out <- frame:
		return true
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) writeLoop(logger *slog.Logger) {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			if err := s.conn.WriteFrame(frame); err != nil {
				logger.Debug("writing frame", "error", err)
				s.close()
				return
			}
		}
	}
}

// close is safe to call multiple times.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			slog.Debug("closing connection", "conn", s.id, "error", err)
		}
	})
}
