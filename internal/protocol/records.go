package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pixil98/go-blockdemo/internal/game"
)

const (
	vecSize = 12

	MovementSize = 2 * vecSize
	RecordSize   = MovementSize + 4
	DespawnSize  = 4
	BlockSize    = vecSize
)

// PlayerRecord is the full server-side view of a player: spawn and movement broadcasts
// both carry it.
type PlayerRecord struct {
	Position game.Vec3
	Rotation game.Vec3
	Owner    game.ConnID
}

// MovementUpdate is what a client reports about its own avatar.
type MovementUpdate struct {
	Position game.Vec3
	Rotation game.Vec3
}

func (r PlayerRecord) Marshal() []byte {
	b := make([]byte, RecordSize)
	putVec(b[0:], r.Position)
	putVec(b[vecSize:], r.Rotation)
	binary.BigEndian.PutUint32(b[MovementSize:], uint32(r.Owner))
	return b
}

func UnmarshalPlayerRecord(b []byte) (PlayerRecord, error) {
	if err := checkSize("player record", b, RecordSize); err != nil {
		return PlayerRecord{}, err
	}
	return PlayerRecord{
		Position: getVec(b[0:]),
		Rotation: getVec(b[vecSize:]),
		Owner:    game.ConnID(binary.BigEndian.Uint32(b[MovementSize:])),
	}, nil
}

func (m MovementUpdate) Marshal() []byte {
	b := make([]byte, MovementSize)
	putVec(b[0:], m.Position)
	putVec(b[vecSize:], m.Rotation)
	return b
}

func UnmarshalMovement(b []byte) (MovementUpdate, error) {
	if err := checkSize("movement", b, MovementSize); err != nil {
		return MovementUpdate{}, err
	}
	return MovementUpdate{
		Position: getVec(b[0:]),
		Rotation: getVec(b[vecSize:]),
	}, nil
}

func MarshalDespawn(id game.ConnID) []byte {
	b := make([]byte, DespawnSize)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func UnmarshalDespawn(b []byte) (game.ConnID, error) {
	if err := checkSize("despawn", b, DespawnSize); err != nil {
		return 0, err
	}
	return game.ConnID(binary.BigEndian.Uint32(b)), nil
}

// MarshalCoords writes a block position as three float32 values.
func MarshalCoords(v game.Vec3) []byte {
	b := make([]byte, BlockSize)
	putVec(b, v)
	return b
}

// UnmarshalCoords reads exactly three float32 values.
func UnmarshalCoords(b []byte) (game.Vec3, error) {
	if err := checkSize("block", b, BlockSize); err != nil {
		return game.Vec3{}, err
	}
	return getVec(b), nil
}

func checkSize(what string, b []byte, want int) error {
	if len(b) != want {
		return fmt.Errorf("%s payload is %d bytes, want %d: %w", what, len(b), want, game.ErrMalformedPayload)
	}
	return nil
}

func putVec(b []byte, v game.Vec3) {
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint32(b[i*4:], math.Float32bits(v[i]))
	}
}

func getVec(b []byte) game.Vec3 {
	var v game.Vec3
	for i := 0; i < 3; i++ {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return v
}
