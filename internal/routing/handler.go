package routing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// Handler reacts to connection events raised by the transport. The transport may call
// it concurrently for different connections; calls for one connection arrive in order.
type Handler interface {
	OnConnect(ctx context.Context, id game.ConnID) error
	OnDisconnect(ctx context.Context, id game.ConnID) error
	OnMessage(ctx context.Context, id game.ConnID, msg protocol.Message) error
}

// Mux forwards every event to each registered handler in registration order.
type Mux struct {
	handlers []Handler
	tracer   trace.Tracer
}

func NewMux(handlers ...Handler) *Mux {
	return &Mux{
		handlers: handlers,
		tracer:   otel.Tracer("github.com/pixil98/go-blockdemo/internal/routing"),
	}
}

func (m *Mux) OnConnect(ctx context.Context, id game.ConnID) error {
	return m.dispatch(ctx, "connect", id, func(h Handler, ctx context.Context) error {
		return h.OnConnect(ctx, id)
	})
}

func (m *Mux) OnDisconnect(ctx context.Context, id game.ConnID) error {
	return m.dispatch(ctx, "disconnect", id, func(h Handler, ctx context.Context) error {
		return h.OnDisconnect(ctx, id)
	})
}

func (m *Mux) OnMessage(ctx context.Context, id game.ConnID, msg protocol.Message) error {
	return m.dispatch(ctx, "message", id, func(h Handler, ctx context.Context) error {
		return h.OnMessage(ctx, id, msg)
	}, attribute.String("tag", msg.Tag.String()), attribute.Int("subject", int(msg.Subject)))
}

// dispatch runs fn for every handler even if an earlier one fails. Errors are logged
// and the first is returned.
func (m *Mux) dispatch(ctx context.Context, event string, id game.ConnID, fn func(Handler, context.Context) error, attrs ...attribute.KeyValue) error {
	attrs = append(attrs, attribute.Int64("conn", int64(id)))
	ctx, span := m.tracer.Start(ctx, "routing."+event, trace.WithAttributes(attrs...))
	defer span.End()

	var firstErr error
	for _, h := range m.handlers {
		if err := fn(h, ctx); err != nil {
			slog.WarnContext(ctx, "handling event", "event", event, "conn", id, "error", err)
			span.RecordError(err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		span.SetStatus(codes.Error, firstErr.Error())
	}
	return firstErr
}
