package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/pixil98/go-blockdemo/internal/world"
)

const (
	DefaultPrefix = "edits"
	hourLayout    = "2006-01-02-15"
	bufferSize    = 64 * 1024
)

// Writer appends world edits as zstd compressed JSON lines, one file per UTC hour.
// It is an audit trail only; nothing reads it back at startup.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	closed  bool
}

var _ world.Journal = (*Writer)(nil)

type WriterOpt func(*Writer)

func WithPrefix(prefix string) WriterOpt {
	return func(w *Writer) {
		w.prefix = prefix
	}
}

// WithClock replaces the clock used to pick the hourly file.
func WithClock(now func() time.Time) WriterOpt {
	return func(w *Writer) {
		w.now = now
	}
}

func NewWriter(dir string, opts ...WriterOpt) *Writer {
	w := &Writer{
		dir:    dir,
		prefix: DefaultPrefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Record appends e to the file for the current hour.
func (w *Writer) Record(e world.Edit) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	hour := w.now().UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return fmt.Errorf("rotating journal: %w", err)
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling edit: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("writing edit: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing edit: %w", err)
	}
	return w.w.Flush()
}

// Start runs until ctx is canceled and then closes the current file.
func (w *Writer) Start(ctx context.Context) error {
	<-ctx.Done()
	if err := w.Close(); err != nil {
		slog.Error("closing journal", "dir", w.dir, "error", err)
		return err
	}
	return nil
}

// Close finishes the current file. Later records fail with ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.closeLocked()
}

// Path returns the file edits recorded at t are written to.
func (w *Writer) Path(t time.Time) string {
	return w.pathForHour(t.UTC().Format(hourLayout))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}

	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, bufferSize)
	w.curHour = hour
	slog.Debug("journal rotated", "path", f.Name())
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}
