package routing

import (
	"context"
	"fmt"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// Directory exposes the live connection set owned by the transport.
type Directory interface {
	Connections() []game.ConnID
}

// Sender enqueues a message on one connection's reliable ordered outbound queue.
// It must not block on network I/O.
type Sender interface {
	Send(ctx context.Context, to game.ConnID, msg protocol.Message) error
}

// Striker records a protocol violation against a connection. What happens after
// enough strikes is up to the transport.
type Striker interface {
	Strike(id game.ConnID, reason string)
}

// Audience picks recipients out of the live connection set.
type Audience func(live []game.ConnID) []game.ConnID

// Everyone targets every live connection.
func Everyone() Audience {
	return func(live []game.ConnID) []game.ConnID {
		return live
	}
}

// Except targets every live connection but one.
func Except(id game.ConnID) Audience {
	return func(live []game.ConnID) []game.ConnID {
		out := make([]game.ConnID, 0, len(live))
		for _, c := range live {
			if c != id {
				out = append(out, c)
			}
		}
		return out
	}
}

// Only targets exactly the given connections, live or not.
func Only(ids ...game.ConnID) Audience {
	return func([]game.ConnID) []game.ConnID {
		return ids
	}
}

// Outbound is a message together with its distribution list.
type Outbound struct {
	Message    protocol.Message
	Recipients []game.ConnID
}

// Router turns a message and an audience into deliveries.
type Router struct {
	dir    Directory
	sender Sender
}

func NewRouter(dir Directory, sender Sender) *Router {
	return &Router{
		dir:    dir,
		sender: sender,
	}
}

// Route resolves the audience against the current live set.
func (r *Router) Route(msg protocol.Message, aud Audience) Outbound {
	return Outbound{
		Message:    msg,
		Recipients: aud(r.dir.Connections()),
	}
}

// Deliver routes msg and sends it to each recipient. Every recipient is attempted;
// the first error is returned.
func (r *Router) Deliver(ctx context.Context, msg protocol.Message, aud Audience) error {
	return r.Send(ctx, r.Route(msg, aud))
}

// Send hands an already routed message to the sender.
func (r *Router) Send(ctx context.Context, out Outbound) error {
	var firstErr error
	for _, id := range out.Recipients {
		if err := r.sender.Send(ctx, id, out.Message); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sending %s to %s: %w", out.Message.Tag, id, err)
		}
	}
	return firstErr
}
