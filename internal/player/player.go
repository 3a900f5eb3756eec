package player

import (
	"sync"

	"github.com/pixil98/go-blockdemo/internal/game"
	"github.com/pixil98/go-blockdemo/internal/protocol"
)

// Player is the server-side avatar of one connection.
type Player struct {
	owner game.ConnID

	mu       sync.Mutex
	position game.Vec3
	rotation game.Vec3
}

func newPlayer(owner game.ConnID) *Player {
	return &Player{
		owner:    owner,
		position: game.Origin,
		rotation: game.Origin,
	}
}

// Owner returns the connection that controls this player.
func (p *Player) Owner() game.ConnID {
	return p.owner
}

// Record returns a consistent copy of the player's state.
func (p *Player) Record() protocol.PlayerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recordLocked()
}

// apply replaces position and rotation and returns the resulting record. Updates are
// taken verbatim.
func (p *Player) apply(u protocol.MovementUpdate) protocol.PlayerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = u.Position
	p.rotation = u.Rotation
	return p.recordLocked()
}

func (p *Player) recordLocked() protocol.PlayerRecord {
	return protocol.PlayerRecord{
		Position: p.position,
		Rotation: p.rotation,
		Owner:    p.owner,
	}
}
