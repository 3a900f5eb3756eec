// Package routingtest provides in-memory routing collaborators for tests.
package routingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// Directory is a mutable live connection set.
type Directory struct {
	mu   sync.Mutex
	live map[game.ConnID]struct{}
}

func NewDirectory(ids ...game.ConnID) *Directory {
	d := &Directory{live: map[game.ConnID]struct{}{}}
	for _, id := range ids {
		d.live[id] = struct{}{}
	}
	return d
}

func (d *Directory) Add(id game.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live[id] = struct{}{}
}

func (d *Directory) Remove(id game.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.live, id)
}

// Connections returns the live set in ascending order.
func (d *Directory) Connections() []game.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]game.ConnID, 0, len(d.live))
	for id := range d.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Recorder captures every message sent to every connection.
type Recorder struct {
	mu   sync.Mutex
	sent map[game.ConnID][]protocol.Message
	err  error
}

func NewRecorder() *Recorder {
	return &Recorder{sent: map[game.ConnID][]protocol.Message{}}
}

// FailWith makes every later Send return err after recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Send(_ context.Context, to game.ConnID, msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[to] = append(r.sent[to], msg)
	return r.err
}

// To returns the messages sent to id, in order.
func (r *Recorder) To(id game.ConnID) []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.sent[id]...)
}

// Tagged returns the messages sent to id carrying tag.
func (r *Recorder) Tagged(id game.ConnID, tag protocol.Tag) []protocol.Message {
	var out []protocol.Message
	for _, m := range r.To(id) {
		if m.Tag == tag {
			out = append(out, m)
		}
	}
	return out
}

// Total counts every recorded send.
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msgs := range r.sent {
		n += len(msgs)
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = map[game.ConnID][]protocol.Message{}
}

// Strikes counts strikes per connection.
type Strikes struct {
	mu      sync.Mutex
	counts  map[game.ConnID]int
	reasons []string
}

func NewStrikes() *Strikes {
	return &Strikes{counts: map[game.ConnID]int{}}
}

func (s *Strikes) Strike(id game.ConnID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[id]++
	s.reasons = append(s.reasons, reason)
}

func (s *Strikes) Count(id game.ConnID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[id]
}
