package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// Publisher is the publishing half of a message bus.
type Publisher interface {
	Publish(subject string, data []byte) error
}

const connSubjectPrefix = "conn."

// ConnSubject is the subject a connection's outbound queue listens on.
func ConnSubject(id game.ConnID) string {
	return fmt.Sprintf("%s%d", connSubjectPrefix, id)
}

// ParseConnSubject is the inverse of ConnSubject.
func ParseConnSubject(subject string) (game.ConnID, bool) {
	rest, ok := strings.CutPrefix(subject, connSubjectPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return game.ConnID(id), true
}

// NatsPublisher delivers frames to individual connection subjects.
type NatsPublisher struct {
	pub Publisher
}

// NewNatsPublisher wraps a NatsServer for per-connection delivery.
func NewNatsPublisher(pub Publisher) *NatsPublisher {
	return &NatsPublisher{pub: pub}
}

func (p *NatsPublisher) Send(_ context.Context, to game.ConnID, msg protocol.Message) error {
	return p.pub.Publish(ConnSubject(to), protocol.EncodeFrame(msg))
}
