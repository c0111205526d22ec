package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
	"github.com/drlau/megumin.love/internal/core/storage"
)

var (
	// ErrInvalidFilename rejects filenames that cannot serve as an
	// on-disk payload stem.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrPayloadIO marks payload file failures. Depending on the
	// operation the durable catalog was either rolled back or had
	// already converged when the failure happened; the error message
	// says which file needs inspection.
	ErrPayloadIO = errors.New("payload io failure")
)

// Cache is the in-memory sound catalog the service keeps aligned with
// durable storage.
type Cache interface {
	LookupSound(filename string) (v1.Sound, bool)
	NextSoundID() int
	AddSound(s v1.Sound)
	UpdateSound(oldFilename string, s v1.Sound) bool
	RemoveSound(filename string) (v1.Sound, bool)
	SoundsSnapshot() []v1.Sound
}

// Notifier fans a notification out to connected clients.
type Notifier interface {
	Broadcast(n v1.Notification)
}

// Payload is one uploaded audio variant for a sound. The stored file
// name is the sound's filename plus Ext.
type Payload struct {
	Ext    string
	Reader io.Reader
}

// Service serializes catalog mutations across durable storage, the
// in-memory cache and the payload library, keeping the three aligned
// even when one of them fails mid-operation.
type Service struct {
	mu       sync.Mutex
	cache    Cache
	store    storage.SoundStore
	library  *Library
	notifier Notifier

	debounce       time.Duration
	maxUploadBytes int64

	timerMu sync.Mutex
	timer   *time.Timer
}

func NewService(cache Cache, store storage.SoundStore, library *Library, notifier Notifier, debounce time.Duration, maxUploadBytes int64) *Service {
	return &Service{
		cache:          cache,
		store:          store,
		library:        library,
		notifier:       notifier,
		debounce:       debounce,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register adds a new sound: payload files land on disk first, then the
// durable row, then the cache entry. A durable failure deletes the
// payloads again so a retry starts clean; the id is assigned only once
// the payloads are in place.
func (s *Service) Register(ctx context.Context, req v1.RegisterRequest, payloads []Payload) (v1.Sound, error) {
	if !validFilename(req.Filename) {
		return v1.Sound{}, fmt.Errorf("%w: %q", ErrInvalidFilename, req.Filename)
	}
	if len(payloads) == 0 {
		return v1.Sound{}, fmt.Errorf("%w: at least one audio file is required", ErrInvalidFilename)
	}
	for _, p := range payloads {
		if !validExt(p.Ext) {
			return v1.Sound{}, fmt.Errorf("%w: bad payload extension %q", ErrInvalidFilename, p.Ext)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.LookupSound(req.Filename); ok {
		return v1.Sound{}, fmt.Errorf("%w: %s", storage.ErrDuplicateSound, req.Filename)
	}

	written := make([]string, 0, len(payloads))
	for _, p := range payloads {
		name := req.Filename + p.Ext
		if err := s.library.Write(name, p.Reader); err != nil {
			s.discard(written)
			return v1.Sound{}, fmt.Errorf("%w: %v", ErrPayloadIO, err)
		}
		written = append(written, name)
	}

	sound := v1.Sound{
		ID:          s.cache.NextSoundID(),
		Filename:    req.Filename,
		DisplayName: req.DisplayName,
		Source:      req.Source,
	}

	if err := s.store.InsertSound(ctx, sound); err != nil {
		s.discard(written)
		return v1.Sound{}, err
	}

	s.cache.AddSound(sound)
	s.scheduleNotify()

	slog.Info("[Catalog] Sound registered",
		"id", sound.ID, "filename", sound.Filename, "variants", len(written))
	return sound, nil
}

// Rename updates a sound's metadata and, when the filename changes,
// moves every payload variant with it. The durable row and cache entry
// are updated before the file swap; if the swap fails both are reverted
// so all three stores stay aligned.
func (s *Service) Rename(ctx context.Context, oldFilename string, req v1.RenameRequest) (v1.Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cache.LookupSound(oldFilename)
	if !ok {
		return v1.Sound{}, fmt.Errorf("%w: %s", storage.ErrSoundNotFound, oldFilename)
	}

	updated := current
	if req.Filename != "" {
		if !validFilename(req.Filename) {
			return v1.Sound{}, fmt.Errorf("%w: %q", ErrInvalidFilename, req.Filename)
		}
		updated.Filename = req.Filename
	}
	if req.DisplayName != "" {
		updated.DisplayName = req.DisplayName
	}
	if req.Source != "" {
		updated.Source = req.Source
	}

	if updated.Filename != oldFilename {
		if _, exists := s.cache.LookupSound(updated.Filename); exists {
			return v1.Sound{}, fmt.Errorf("%w: %s", storage.ErrDuplicateSound, updated.Filename)
		}
	}

	if err := s.store.RenameSound(ctx, oldFilename, updated); err != nil {
		return v1.Sound{}, err
	}
	s.cache.UpdateSound(oldFilename, updated)

	if updated.Filename != oldFilename {
		if err := s.library.Rename(oldFilename, updated.Filename); err != nil {
			s.revertRename(ctx, oldFilename, current, updated)
			return v1.Sound{}, fmt.Errorf("%w: %v", ErrPayloadIO, err)
		}
	}

	s.scheduleNotify()
	slog.Info("[Catalog] Sound renamed",
		"id", updated.ID, "from", oldFilename, "to", updated.Filename)
	return updated, nil
}

// Remove deletes a sound everywhere. Payload deletion is best effort: a
// leftover file is reported to the caller, but the durable row and
// cache entry are gone regardless.
func (s *Service) Remove(ctx context.Context, filename string) (v1.Sound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sound, ok := s.cache.LookupSound(filename)
	if !ok {
		return v1.Sound{}, fmt.Errorf("%w: %s", storage.ErrSoundNotFound, filename)
	}

	if err := s.store.DeleteSound(ctx, filename); err != nil {
		return v1.Sound{}, err
	}

	var payloadErr error
	if err := s.library.RemoveAll(filename); err != nil {
		payloadErr = fmt.Errorf("%w: %v", ErrPayloadIO, err)
		slog.Error("[Catalog] Payload cleanup failed after delete",
			"filename", filename, "error", err)
	}

	s.cache.RemoveSound(filename)
	s.scheduleNotify()

	slog.Info("[Catalog] Sound removed", "id", sound.ID, "filename", filename)
	return sound, payloadErr
}

// Stop cancels a pending catalog notification during shutdown.
func (s *Service) Stop() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// revertRename undoes the durable and cache updates after a payload
// swap failed. A revert that itself fails leaves the stores divergent
// and is logged for manual inspection.
func (s *Service) revertRename(ctx context.Context, oldFilename string, original, updated v1.Sound) {
	if err := s.store.RenameSound(ctx, updated.Filename, original); err != nil {
		slog.Error("[Catalog] Could not revert durable rename; stores need manual inspection",
			"id", original.ID, "filename", oldFilename, "error", err)
	}
	s.cache.UpdateSound(updated.Filename, original)
}

// discard removes payload files written by a registration that did not
// reach durable storage.
func (s *Service) discard(names []string) {
	for _, name := range names {
		if err := s.library.Remove(name); err != nil {
			slog.Error("[Catalog] Could not discard payload after failed registration",
				"payload", name, "error", err)
		}
	}
}

// scheduleNotify broadcasts the full catalog once the debounce window
// closes; mutations arriving inside the window collapse into a single
// notification.
func (s *Service) scheduleNotify() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.notifier.Broadcast(v1.CatalogUpdate(s.cache.SoundsSnapshot()))
	})
}

// validFilename accepts names usable as a payload stem: no path
// separators, no extension separator, not a relative path element.
func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\.`) {
		return false
	}
	return filepath.Base(name) == name
}

// validExt accepts a single dot-prefixed extension such as ".mp3".
func validExt(ext string) bool {
	if len(ext) < 2 || ext[0] != '.' {
		return false
	}
	return !strings.ContainsAny(ext[1:], `/\.`)
}
