package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
	"github.com/pixil98/go-blockdemo/internal/routing/routingtest"
	"github.com/pixil98/go-testutil"
)

func TestRouter_Route(t *testing.T) {
	tests := map[string]struct {
		live   []game.ConnID
		aud    Audience
		expIds []game.ConnID
	}{
		"everyone": {
			live:   []game.ConnID{1, 2, 3},
			aud:    Everyone(),
			expIds: []game.ConnID{1, 2, 3},
		},
		"except sender": {
			live:   []game.ConnID{1, 2, 3},
			aud:    Except(2),
			expIds: []game.ConnID{1, 3},
		},
		"except unknown": {
			live:   []game.ConnID{1, 2},
			aud:    Except(9),
			expIds: []game.ConnID{1, 2},
		},
		"except only live": {
			live:   []game.ConnID{4},
			aud:    Except(4),
			expIds: []game.ConnID{},
		},
		"only ignores live set": {
			live:   []game.ConnID{1},
			aud:    Only(5),
			expIds: []game.ConnID{5},
		},
		"nobody connected": {
			live:   nil,
			aud:    Everyone(),
			expIds: []game.ConnID{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := NewRouter(routingtest.NewDirectory(tt.live...), routingtest.NewRecorder())

			out := r.Route(protocol.Message{Tag: protocol.TagWorld}, tt.aud)

			testutil.AssertEqual(t, "recipient count", len(out.Recipients), len(tt.expIds))
			for i, id := range tt.expIds {
				testutil.AssertEqual(t, "recipient", out.Recipients[i], id)
			}
		})
	}
}

func TestRouter_Deliver(t *testing.T) {
	rec := routingtest.NewRecorder()
	r := NewRouter(routingtest.NewDirectory(1, 2, 3), rec)
	msg := protocol.Message{Tag: protocol.TagMovement, Payload: []byte{1}}

	err := r.Deliver(context.Background(), msg, Except(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "to sender", len(rec.To(1)), 0)
	testutil.AssertEqual(t, "to 2", len(rec.To(2)), 1)
	testutil.AssertEqual(t, "to 3", len(rec.To(3)), 1)
}

func TestRouter_DeliverAttemptsEveryRecipient(t *testing.T) {
	rec := routingtest.NewRecorder()
	rec.FailWith(errors.New("queue closed"))
	r := NewRouter(routingtest.NewDirectory(1, 2), rec)

	err := r.Deliver(context.Background(), protocol.Message{Tag: protocol.TagWorld}, Everyone())

	testutil.AssertErrorContains(t, err, "queue closed")
	testutil.AssertEqual(t, "attempts", rec.Total(), 2)
}

type stubHandler struct {
	name  string
	calls *[]string
	err   error
}

func (h *stubHandler) OnConnect(context.Context, game.ConnID) error {
	*h.calls = append(*h.calls, h.name+":connect")
	return h.err
}

func (h *stubHandler) OnDisconnect(context.Context, game.ConnID) error {
	*h.calls = append(*h.calls, h.name+":disconnect")
	return h.err
}

func (h *stubHandler) OnMessage(_ context.Context, _ game.ConnID, msg protocol.Message) error {
	*h.calls = append(*h.calls, h.name+":"+msg.Tag.String())
	return h.err
}

func TestMux_DispatchOrderAndErrors(t *testing.T) {
	var calls []string
	failing := &stubHandler{name: "a", calls: &calls, err: errors.New("boom")}
	ok := &stubHandler{name: "b", calls: &calls}
	mux := NewMux(failing, ok)
	ctx := context.Background()

	err := mux.OnConnect(ctx, 1)
	testutil.AssertErrorContains(t, err, "boom")

	_ = mux.OnMessage(ctx, 1, protocol.Message{Tag: protocol.TagWorld})
	_ = mux.OnDisconnect(ctx, 1)

	exp := []string{"a:connect", "b:connect", "a:world", "b:world", "a:disconnect", "b:disconnect"}
	testutil.AssertEqual(t, "call count", len(calls), len(exp))
	for i := range exp {
		testutil.AssertEqual(t, "call", calls[i], exp[i])
	}
}
