package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

type countingManager struct {
	ticks int
	err   error
}

func (m *countingManager) Tick(context.Context) error {
	m.ticks++
	return m.err
}

type fixedCount int

func (c fixedCount) Count() int { return int(c) }
func (c fixedCount) Len() int   { return int(c) }

func TestDriver_Tick(t *testing.T) {
	tests := map[string]struct {
		firstErr  error
		expErr    string
		expSecond int
	}{
		"all managers tick": {
			expSecond: 1,
		},
		"error stops the tick": {
			firstErr:  errors.New("boom"),
			expErr:    "boom",
			expSecond: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			first := &countingManager{err: tt.firstErr}
			second := &countingManager{}
			d := NewDriver([]Manager{first, second})

			err := d.Tick(context.Background())
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "first ticks", first.ticks, 1)
			testutil.AssertEqual(t, "second ticks", second.ticks, tt.expSecond)
		})
	}
}

func TestDriver_StartStopsOnCancel(t *testing.T) {
	status := NewStatusReporter(fixedCount(2), fixedCount(121))
	d := NewDriver([]Manager{status}, WithTickLength(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestDriver_StartReturnsManagerError(t *testing.T) {
	m := &countingManager{err: errors.New("tick failed")}
	d := NewDriver([]Manager{m}, WithTickLength(time.Millisecond))

	err := d.Start(context.Background())
	testutil.AssertErrorContains(t, err, "tick failed")
}
