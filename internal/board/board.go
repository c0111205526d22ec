package board

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
	"github.com/drlau/megumin.love/internal/core/counter"
	"github.com/drlau/megumin.love/internal/core/series"
	"github.com/drlau/megumin.love/internal/core/storage"
)

// Notifier fans a notification out to every subscriber. Implementations
// must not block: Broadcast runs inside the board's write-locked region
// so that per-subscriber delivery order matches mutation order.
type Notifier interface {
	Broadcast(n v1.Notification)
}

// Board is the single mutation point for the counter figures, the daily
// click series and the sound catalog cache. Every write serializes
// through its lock; reads hand out copies, never live references.
type Board struct {
	mu     sync.RWMutex
	state  counter.State
	clicks series.Series
	sounds []v1.Sound     // ordered by id
	byName map[string]int // filename -> index into sounds
	today  series.Date

	notifier Notifier
	nowFn    func() time.Time
}

// New creates an empty board. Call Load before serving traffic.
func New(notifier Notifier) *Board {
	return &Board{
		clicks:   series.Series{},
		byName:   map[string]int{},
		notifier: notifier,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Load rebuilds the board from the durable stores. Today's series entry
// is created as zero when absent so the daily figure always has a home
// to roll into.
func (b *Board) Load(ctx context.Context, store storage.BoardStore) error {
	total, err := store.Total(ctx)
	if err != nil {
		return fmt.Errorf("load counter: %w", err)
	}

	clicks, err := store.AllStatistics(ctx)
	if err != nil {
		return fmt.Errorf("load statistics: %w", err)
	}

	sounds, err := store.AllSounds(ctx)
	if err != nil {
		return fmt.Errorf("load sounds: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.today = series.DateOf(b.nowFn())
	if _, ok := clicks[b.today]; !ok {
		clicks[b.today] = 0
	}

	b.clicks = clicks
	b.state = counter.Derive(clicks, b.today, total)
	b.sounds = sounds
	b.byName = make(map[string]int, len(sounds))
	for i, s := range sounds {
		b.byName[s.Filename] = i
	}

	slog.Info("[Board] State loaded",
		"total", b.state.Total,
		"daily", b.state.Daily,
		"series_days", len(b.clicks),
		"sounds", len(b.sounds),
	)
	return nil
}

// RecordClick advances every counter figure and the series tail, then
// announces the new figures. It cannot fail.
func (b *Board) RecordClick() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = b.state.Click()
	b.clicks[b.today] = b.state.Daily

	b.broadcast(v1.CounterUpdate(b.state.Total, statsOf(b.state)))
}

// RecordPlay bumps the play count of an exactly matching sound and
// announces the updated record. An unknown filename is dropped without
// side effects so forged client input can never create state.
func (b *Board) RecordPlay(filename string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.byName[filename]
	if !ok {
		return false
	}

	b.sounds[i].PlayCount++
	b.broadcast(v1.SoundUpdate([]v1.Sound{b.sounds[i]}))
	return true
}

// Rollover advances the board's calendar to the given day, applying the
// missed transitions in order: day, then week when the new day is a
// Monday, then month on the first. The month reset runs last so a new
// month always starts at one observed day. Calling it again for the
// same (or an earlier) day is a no-op.
func (b *Board) Rollover(to series.Date) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.today.Before(to) {
		day := b.today.Next()

		b.state = b.state.RolloverDay()
		b.today = day
		if _, ok := b.clicks[day]; !ok {
			b.clicks[day] = 0
		}
		b.broadcast(v1.StatisticsUpdate(statsOf(b.state)))

		if day.WeekStart() == day {
			b.state = b.state.RolloverWeek()
			b.broadcast(v1.StatisticsUpdate(statsOf(b.state)))
		}

		if day.Day == 1 {
			b.state = b.state.RolloverMonth()
			b.broadcast(v1.StatisticsUpdate(statsOf(b.state)))
		}

		slog.Info("[Board] Rolled over", "date", day.String())
	}
}

// Snapshot returns a consistent point-in-time copy of the whole board.
func (b *Board) Snapshot() (total int64, stats v1.Statistics, sounds []v1.Sound) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.state.Total, statsOf(b.state), b.soundsCopy()
}

// SeriesSnapshot returns an independent copy of the click series.
func (b *Board) SeriesSnapshot() series.Series {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.clicks.Clone()
}

// RollupSnapshot captures everything a scheduled persistence write
// needs at one instant.
func (b *Board) RollupSnapshot() storage.RollupSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	plays := make(map[int]int64, len(b.sounds))
	for _, s := range b.sounds {
		plays[s.ID] = s.PlayCount
	}

	return storage.RollupSnapshot{
		Total:      b.state.Total,
		Date:       b.today,
		Daily:      b.state.Daily,
		PlayCounts: plays,
	}
}

// LookupSound returns the cached record for a filename.
func (b *Board) LookupSound(filename string) (v1.Sound, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.byName[filename]
	if !ok {
		return v1.Sound{}, false
	}
	return b.sounds[i], true
}

// NextSoundID returns the id a newly registered sound should take:
// one past the highest id currently cached, or 1 for an empty catalog.
// Gaps left by mid-range deletions are never reassigned.
func (b *Board) NextSoundID() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	max := 0
	for _, s := range b.sounds {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

// AddSound appends a record to the catalog cache.
func (b *Board) AddSound(s v1.Sound) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sounds = append(b.sounds, s)
	sort.Slice(b.sounds, func(i, j int) bool { return b.sounds[i].ID < b.sounds[j].ID })
	b.reindex()
}

// UpdateSound replaces the record cached under oldFilename, keeping its
// id and play count.
func (b *Board) UpdateSound(oldFilename string, s v1.Sound) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.byName[oldFilename]
	if !ok {
		return false
	}

	s.ID = b.sounds[i].ID
	s.PlayCount = b.sounds[i].PlayCount
	b.sounds[i] = s
	b.reindex()
	return true
}

// RemoveSound drops a record from the catalog cache and returns it.
func (b *Board) RemoveSound(filename string) (v1.Sound, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.byName[filename]
	if !ok {
		return v1.Sound{}, false
	}

	removed := b.sounds[i]
	b.sounds = append(b.sounds[:i], b.sounds[i+1:]...)
	b.reindex()
	return removed, true
}

// SoundsSnapshot returns an independent copy of the catalog, ordered by id.
func (b *Board) SoundsSnapshot() []v1.Sound {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.soundsCopy()
}

func (b *Board) broadcast(n v1.Notification) {
	if b.notifier != nil {
		b.notifier.Broadcast(n)
	}
}

func (b *Board) soundsCopy() []v1.Sound {
	out := make([]v1.Sound, len(b.sounds))
	copy(out, b.sounds)
	return out
}

// reindex rebuilds the filename index after any catalog cache change.
func (b *Board) reindex() {
	b.byName = make(map[string]int, len(b.sounds))
	for i, s := range b.sounds {
		b.byName[s.Filename] = i
	}
}

func statsOf(st counter.State) v1.Statistics {
	return v1.Statistics{
		Total:   st.Total,
		Daily:   st.Daily,
		Weekly:  st.Weekly,
		Monthly: st.Monthly,
		Average: st.Average,
	}
}
