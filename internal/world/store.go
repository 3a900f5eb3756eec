package world

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
	"github.com/pixil98/go-blockdemo/internal/routing"
)

// Store is the set of blocks that make up the shared world.
//
// Every mutation and every snapshot happens under one lock, and the resulting
// messages are enqueued before it is released. Clients therefore observe edits to a
// cell in the order they were applied.
type Store struct {
	router  *routing.Router
	striker routing.Striker
	journal Journal
	now     func() time.Time

	mu     sync.Mutex
	blocks map[Block]struct{}
}

type StoreOpt func(*Store)

// WithJournal records every successful edit to j.
func WithJournal(j Journal) StoreOpt {
	return func(s *Store) {
		s.journal = j
	}
}

// NewStore builds a store seeded with the floor. It is ready before the first client
// connects.
func NewStore(dir routing.Directory, sender routing.Sender, striker routing.Striker, opts ...StoreOpt) *Store {
	s := &Store{
		router:  routing.NewRouter(dir, sender),
		striker: striker,
		now:     time.Now,
		blocks:  map[Block]struct{}{},
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, b := range Floor() {
		s.blocks[b] = struct{}{}
	}

	return s
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func (s *Store) Contains(b Block) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocks[b]
	return ok
}

// Blocks returns a sorted copy of the world.
func (s *Store) Blocks() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// OnConnect sends id one snapshot message per block.
func (s *Store) OnConnect(ctx context.Context, id game.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, b := range s.sortedLocked() {
		msg := protocol.Message{
			Tag:     protocol.TagWorld,
			Subject: protocol.SubjectSnapshot,
			Payload: protocol.MarshalCoords(b.Vec()),
		}
		if err := s.router.Deliver(ctx, msg, routing.Only(id)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OnDisconnect is a no-op; blocks do not belong to anyone.
func (s *Store) OnDisconnect(context.Context, game.ConnID) error {
	return nil
}

// OnMessage applies place and destroy requests. Anything that is not exactly three
// floats earns the sender a strike.
func (s *Store) OnMessage(ctx context.Context, id game.ConnID, msg protocol.Message) error {
	if msg.Tag != protocol.TagWorld {
		return nil
	}

	v, err := protocol.UnmarshalCoords(msg.Payload)
	if err != nil {
		s.striker.Strike(id, "malformed world event")
		slog.DebugContext(ctx, "dropping world event", "conn", id, "error", err)
		return nil
	}
	b := Snap(v)

	var op Op
	switch msg.Subject {
	case protocol.SubjectPlace:
		op = OpPlace
	case protocol.SubjectDestroy:
		op = OpDestroy
	default:
		slog.DebugContext(ctx, "ignoring world event", "conn", id, "subject", msg.Subject)
		return nil
	}

	return s.apply(ctx, op, b, id, msg.Subject)
}

// apply mutates the set and, if anything changed, journals the edit and broadcasts the
// snapped block to every client including the one that asked. Both happen under the
// lock so the journal and every client see edits in the order they were applied.
func (s *Store) apply(ctx context.Context, op Op, b Block, id game.ConnID, subject protocol.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, present := s.blocks[b]
	switch {
	case op == OpPlace && !present:
		s.blocks[b] = struct{}{}
	case op == OpDestroy && present:
		delete(s.blocks, b)
	default:
		return nil
	}

	if s.journal != nil {
		err := s.journal.Record(Edit{Op: op, Block: b, Conn: id, At: s.now()})
		if err != nil {
			slog.WarnContext(ctx, "journaling world edit", "op", op, "block", b, "error", err)
		}
	}

	msg := protocol.Message{
		Tag:     protocol.TagWorld,
		Subject: subject,
		Payload: protocol.MarshalCoords(b.Vec()),
	}
	return s.router.Deliver(ctx, msg, routing.Everyone())
}

func (s *Store) sortedLocked() []Block {
	blocks := make([]Block, 0, len(s.blocks))
	for b := range s.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].less(blocks[j]) })
	return blocks
}
