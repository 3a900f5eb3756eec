package world

import (
	"time"

	"github.com/pixil98/go-blockdemo/internal/game"
)

type Op string

const (
	OpPlace   Op = "place"
	OpDestroy Op = "destroy"
)

// Edit is one successful change to the world.
type Edit struct {
	Op    Op          `json:"op"`
	Block Block       `json:"block"`
	Conn  game.ConnID `json:"conn"`
	At    time.Time   `json:"at"`
}

// Journal receives every successful edit.
type Journal interface {
	Record(Edit) error
}
