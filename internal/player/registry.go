package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
	"github.com/pixil98/go-blockdemo/internal/routing"
)

// Registry owns the player of every connected client and keeps all clients told
// about each other.
type Registry struct {
	router  *routing.Router
	striker routing.Striker

	// lifecycle serializes connect and disconnect handling so that two clients joining
	// at once always see each other.
	lifecycle sync.Mutex

	mu      sync.RWMutex
	players map[game.ConnID]*Player
}

func NewRegistry(sender routing.Sender, striker routing.Striker) *Registry {
	r := &Registry{
		striker: striker,
		players: map[game.ConnID]*Player{},
	}
	r.router = routing.NewRouter(r, sender)
	return r
}

// Connections returns the ids of all registered players in ascending order. Player
// traffic is distributed to exactly this set.
func (r *Registry) Connections() []game.ConnID {
	r.mu.RLock()
	ids := make([]game.ConnID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Get returns a copy of the state of the player owned by id.
func (r *Registry) Get(id game.ConnID) (protocol.PlayerRecord, bool) {
	p := r.lookup(id)
	if p == nil {
		return protocol.PlayerRecord{}, false
	}
	return p.Record(), true
}

func (r *Registry) lookup(id game.ConnID) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players[id]
}

// OnConnect creates the player for id, announces it to everyone else, then tells id
// about every registered player including itself.
func (r *Registry) OnConnect(ctx context.Context, id game.ConnID) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.lookup(id) != nil {
		return fmt.Errorf("connecting %s: %w", id, game.ErrPlayerExists)
	}

	p := newPlayer(id)
	var errs []error

	err := r.router.Deliver(ctx, spawnMessage(p.Record()), routing.Except(id))
	if err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	r.players[id] = p
	r.mu.Unlock()

	for _, other := range r.snapshot() {
		err := r.router.Deliver(ctx, spawnMessage(other.Record()), routing.Only(id))
		if err != nil {
			errs = append(errs, err)
		}
	}

	slog.DebugContext(ctx, "player spawned", "conn", id)
	return errors.Join(errs...)
}

// OnDisconnect removes the player for id and tells the remaining clients. A second
// disconnect for the same id is ignored.
func (r *Registry) OnDisconnect(ctx context.Context, id game.ConnID) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	_, ok := r.players[id]
	delete(r.players, id)
	r.mu.Unlock()

	if !ok {
		slog.DebugContext(ctx, "disconnect for unknown player", "conn", id)
		return nil
	}

	msg := protocol.Message{
		Tag:     protocol.TagDespawnPlayer,
		Payload: protocol.MarshalDespawn(id),
	}
	slog.DebugContext(ctx, "player despawned", "conn", id)
	// id is no longer in the set, so everyone left hears about it.
	return r.router.Deliver(ctx, msg, routing.Everyone())
}

// OnMessage applies movement updates. Other tags are ignored.
func (r *Registry) OnMessage(ctx context.Context, id game.ConnID, msg protocol.Message) error {
	if msg.Tag != protocol.TagMovement {
		return nil
	}

	update, err := protocol.UnmarshalMovement(msg.Payload)
	if err != nil {
		r.striker.Strike(id, "malformed movement update")
		slog.DebugContext(ctx, "dropping movement", "conn", id, "error", err)
		return nil
	}

	// The client may still be sending after its player was removed.
	p := r.lookup(id)
	if p == nil {
		slog.DebugContext(ctx, "dropping movement", "conn", id, "error", game.ErrPlayerNotFound)
		return nil
	}

	rec := p.apply(update)

	out := protocol.Message{
		Tag:     protocol.TagMovement,
		Subject: msg.Subject,
		Payload: rec.Marshal(),
	}
	return r.router.Deliver(ctx, out, routing.Except(id))
}

// snapshot returns the registered players ordered by id.
func (r *Registry) snapshot() []*Player {
	r.mu.RLock()
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].owner < players[j].owner })
	return players
}

func spawnMessage(rec protocol.PlayerRecord) protocol.Message {
	return protocol.Message{
		Tag:     protocol.TagSpawnPlayer,
		Payload: rec.Marshal(),
	}
}
