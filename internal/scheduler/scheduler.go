// Package scheduler drives the periodic jobs around the board: rollup
// persistence on an interval and the calendar rollover at UTC midnight.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/drlau/megumin.love/internal/core/series"
	"github.com/drlau/megumin.love/internal/core/storage"
)

const shutdownTimeout = 30 * time.Second

// Board is the state the scheduler persists and rolls over.
type Board interface {
	RollupSnapshot() storage.RollupSnapshot
	Rollover(to series.Date)
}

// Metrics receives persistence timings for observability.
type Metrics interface {
	RollupSaved(duration time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) RollupSaved(time.Duration, error) {}

// Scheduler owns the two clocks of the system: the save-interval ticker
// and the midnight boundary timer. Rollovers are cheap in-memory
// transitions; saves go to the database and may be slow, so they run
// off the loop and overlapping ticks are skipped.
type Scheduler struct {
	interval time.Duration
	board    Board
	store    storage.RollupStore
	metrics  Metrics

	// opsMu serializes rollup saves. A tick that finds it held skips
	// instead of queueing, so a slow database never builds a backlog.
	opsMu sync.Mutex

	nowFn func() time.Time
}

func New(interval time.Duration, board Board, store storage.RollupStore, m Metrics) *Scheduler {
	if m == nil {
		m = nopMetrics{}
	}
	return &Scheduler{
		interval: interval,
		board:    board,
		store:    store,
		metrics:  m,
		nowFn:    time.Now,
	}
}

// Start runs the scheduler until the context is cancelled, then makes a
// final blocking persist so a clean shutdown loses nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	boundary := time.NewTimer(s.untilNextMidnight())
	defer boundary.Stop()

	slog.Info("[Scheduler] Starting",
		"save_interval", s.interval,
		"next_rollover_in", s.untilNextMidnight().Round(time.Second),
	)

	for {
		select {
		case <-ticker.C:
			go s.persist(ctx)

		case <-boundary.C:
			s.board.Rollover(series.DateOf(s.nowFn()))
			boundary.Reset(s.untilNextMidnight())

		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			s.finalPersist(shutdownCtx)
			slog.Info("[Scheduler] Final persist complete")
			return nil
		}
	}
}

// persist saves one rollup snapshot unless a save is already running.
func (s *Scheduler) persist(ctx context.Context) {
	if !s.opsMu.TryLock() {
		slog.Warn("[Scheduler] Previous rollup save still running, skipping tick")
		return
	}
	defer s.opsMu.Unlock()

	s.persistLocked(ctx)
}

// finalPersist waits for any in-flight save and then saves once more.
func (s *Scheduler) finalPersist(ctx context.Context) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.persistLocked(ctx)
}

func (s *Scheduler) persistLocked(ctx context.Context) {
	snap := s.board.RollupSnapshot()

	start := time.Now()
	err := s.store.SaveRollup(ctx, snap)
	s.metrics.RollupSaved(time.Since(start), err)

	if err != nil {
		// The snapshot stays in memory; the next tick retries with
		// fresher figures.
		slog.Error("[Scheduler] Rollup save failed", "date", snap.Date, "error", err)
		return
	}

	slog.Info("[Scheduler] Rollup saved",
		"date", snap.Date,
		"total", snap.Total,
		"daily", snap.Daily,
		"sounds", len(snap.PlayCounts),
	)
}

func (s *Scheduler) untilNextMidnight() time.Duration {
	now := s.nowFn()
	d := NextMidnight(now).Sub(now)
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// NextMidnight returns the first UTC midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
