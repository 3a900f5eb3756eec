package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
	"github.com/pixil98/go-testutil"
)

func startTestServer(t *testing.T, opts ...NatsServerOpt) *NatsServer {
	t.Helper()

	s, err := NewNatsServer(append([]NatsServerOpt{WithStartTimeout(5 * time.Second)}, opts...)...)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server never became ready")
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer()
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	testutil.AssertErrorContains(t, s.Publish("conn.1", nil), "not started")
	_, err = s.Subscribe("conn.1", func([]byte) {})
	testutil.AssertErrorContains(t, err, "not started")
}

func TestNatsPublisher_PerConnectionOrder(t *testing.T) {
	s := startTestServer(t, WithPendingLimit(1000))
	pub := NewNatsPublisher(s)

	got := make(chan protocol.Message, 100)
	unsub, err := s.Subscribe(ConnSubject(2), func(data []byte) {
		msg, err := protocol.DecodeFrame(data)
		if err != nil {
			t.Errorf("decoding frame: %v", err)
			return
		}
		got <- msg
	})
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		msg := protocol.Message{Tag: protocol.TagWorld, Subject: protocol.Subject(i)}
		if err := pub.Send(ctx, game.ConnID(2), msg); err != nil {
			t.Fatalf("sending: %v", err)
		}
		// Traffic for another connection must not leak into conn.2.
		if err := pub.Send(ctx, game.ConnID(3), msg); err != nil {
			t.Fatalf("sending: %v", err)
		}
	}

	for i := 0; i < 50; i++ {
		select {
		case msg := <-got:
			testutil.AssertEqual(t, "subject", msg.Subject, protocol.Subject(i))
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	select {
	case msg := <-got:
		t.Fatalf("unexpected extra message %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnSubject(t *testing.T) {
	testutil.AssertEqual(t, "subject", ConnSubject(42), "conn.42")
}

func TestNatsServer_SlowConsumer(t *testing.T) {
	s, err := NewNatsServer(WithStartTimeout(5*time.Second), WithPendingLimit(10))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	dropped := make(chan string, 1)
	s.OnSlowConsumer(func(subject string) {
		select {
		case dropped <- subject:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-s.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("server never became ready")
	}

	release := make(chan struct{})
	defer close(release)
	unsub, err := s.Subscribe(ConnSubject(7), func([]byte) { <-release })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	pub := NewNatsPublisher(s)
	for i := 0; i < 100; i++ {
		if err := pub.Send(context.Background(), 7, protocol.Message{Tag: protocol.TagWorld}); err != nil {
			t.Fatalf("sending: %v", err)
		}
	}

	select {
	case subject := <-dropped:
		testutil.AssertEqual(t, "subject", subject, ConnSubject(7))
	case <-time.After(5 * time.Second):
		t.Fatal("slow consumer was not reported")
	}
}

func TestParseConnSubject(t *testing.T) {
	tests := map[string]struct {
		subject string
		expId   game.ConnID
		expOk   bool
	}{
		"round trip": {subject: ConnSubject(42), expId: 42, expOk: true},
		"max id":     {subject: ConnSubject(4294967295), expId: 4294967295, expOk: true},
		"wrong prefix": {subject: "player.3"},
		"not a number": {subject: "conn.abc"},
		"too large":    {subject: "conn.4294967296"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			id, ok := ParseConnSubject(tt.subject)
			testutil.AssertEqual(t, "ok", ok, tt.expOk)
			testutil.AssertEqual(t, "id", id, tt.expId)
		})
	}
}
