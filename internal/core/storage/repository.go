package storage

import (
	"context"
	"errors"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
	"github.com/drlau/megumin.love/internal/core/series"
)

// ErrDuplicateSound is returned when a sound with the same filename already exists.
var ErrDuplicateSound = errors.New("sound already exists")

// ErrSoundNotFound is returned when a mutation references a filename with no row.
var ErrSoundNotFound = errors.New("sound not found")

// BoardStore loads the persisted state the board rebuilds itself from at boot.
type BoardStore interface {
	// Total reads the all-time click counter. A fresh database reports 0.
	Total(ctx context.Context) (int64, error)

	// AllStatistics fetches the complete daily click series.
	AllStatistics(ctx context.Context) (series.Series, error)

	// AllSounds fetches every catalog row ordered by id.
	AllSounds(ctx context.Context) ([]v1.Sound, error)
}

// SoundStore mutates catalog rows. The caller owns id assignment — ids
// come from the in-memory catalog, not the database.
type SoundStore interface {
	InsertSound(ctx context.Context, sound v1.Sound) error
	RenameSound(ctx context.Context, oldFilename string, sound v1.Sound) error
	DeleteSound(ctx context.Context, filename string) error
}

// RollupSnapshot is one scheduled persistence write: the counter total,
// today's series entry, and the current play counts, captured at the
// same instant.
type RollupSnapshot struct {
	Total int64
	Date  series.Date
	Daily int64

	// PlayCounts maps sound id to its play count. Keyed by id rather
	// than filename so a rename between capture and persist cannot
	// orphan the update.
	PlayCounts map[int]int64
}

// RollupStore persists a snapshot in a single transaction: either every
// figure lands or none do.
type RollupStore interface {
	SaveRollup(ctx context.Context, snap RollupSnapshot) error
}
