package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/liuwen/promptreel/internal/model"
)

// Snapshotter provides a consistent copy of the live artifact set.
type Snapshotter interface {
	Snapshot() []*model.Artifact
}

// Saver persists an artifact snapshot.
type Saver interface {
	SaveAll(ctx context.Context, arts []*model.Artifact) error
}

// Archiver periodically flushes the in-memory store to the durable
// archive so a restarted server can restore its session.
type Archiver struct {
	source   Snapshotter
	sink     Saver
	interval time.Duration
}

// New creates a new Archiver.
func New(source Snapshotter, sink Saver, interval time.Duration) *Archiver {
	return &Archiver{source: source, sink: sink, interval: interval}
}

// Start begins the flush loop. It blocks until ctx is cancelled and
// performs one final flush before returning.
func (a *Archiver) Start(ctx context.Context) {
	slog.Info("archiver started", "interval", a.interval.String())
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush(context.Background())
			slog.Info("archiver stopped")
			return
		case <-ticker.C:
			a.flush(ctx)
		}
	}
}

func (a *Archiver) flush(ctx context.Context) {
	arts := a.source.Snapshot()
	if len(arts) == 0 {
		return
	}
	if err := a.sink.SaveAll(ctx, arts); err != nil {
		slog.Error("archive flush failed", "artifacts", len(arts), "error", err)
		return
	}
	slog.Debug("archive flushed", "artifacts", len(arts))
}
