package driver

import (
	"context"
	"log/slog"
)

// PlayerCounter reports how many players are online.
type PlayerCounter interface {
	Count() int
}

// BlockCounter reports how many blocks the world holds.
type BlockCounter interface {
	Len() int
}

// StatusReporter logs a summary of the server every tick.
type StatusReporter struct {
	players PlayerCounter
	blocks  BlockCounter
}

func NewStatusReporter(players PlayerCounter, blocks BlockCounter) *StatusReporter {
	return &StatusReporter{players: players, blocks: blocks}
}

func (r *StatusReporter) Tick(ctx context.Context) error {
	slog.InfoContext(ctx, "server status", "players", r.players.Count(), "blocks", r.blocks.Len())
	return nil
}
