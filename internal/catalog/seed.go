package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
	"github.com/drlau/megumin.love/internal/core/storage"
)

// seedEntry is the on-disk YAML shape of one catalog seed record.
type seedEntry struct {
	Filename    string `yaml:"filename"`
	DisplayName string `yaml:"displayName"`
	Source      string `yaml:"source"`
}

// Seed bootstraps the catalog from a YAML file listing metadata for
// payloads already present in the library. It only adds sounds when the
// catalog is empty and runs before the server accepts traffic; entries
// without a payload on disk are skipped with a warning.
func (s *Service) Seed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if len(s.cache.SoundsSnapshot()) > 0 {
		slog.Info("[Catalog] Seed skipped, catalog already populated", "file", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // no seed file — valid (empty catalog)
	}
	if err != nil {
		return fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := 0
	for _, e := range entries {
		if e.Filename == "" {
			continue // skip empty / comment-only entries
		}
		if !validFilename(e.Filename) {
			return fmt.Errorf("seed entry %q: %w", e.Filename, ErrInvalidFilename)
		}
		if _, ok := s.cache.LookupSound(e.Filename); ok {
			continue
		}
		if !s.library.HasPayload(e.Filename) {
			slog.Warn("[Catalog] Seed entry has no payload in the library, skipping",
				"filename", e.Filename)
			continue
		}

		sound := v1.Sound{
			ID:          s.cache.NextSoundID(),
			Filename:    e.Filename,
			DisplayName: e.DisplayName,
			Source:      e.Source,
		}
		if sound.DisplayName == "" {
			sound.DisplayName = sound.Filename
		}

		if err := s.store.InsertSound(ctx, sound); err != nil {
			if errors.Is(err, storage.ErrDuplicateSound) {
				slog.Warn("[Catalog] Seed entry already stored, skipping",
					"filename", e.Filename)
				continue
			}
			return fmt.Errorf("seeding sound %q: %w", e.Filename, err)
		}
		s.cache.AddSound(sound)
		seeded++
	}

	if seeded > 0 {
		slog.Info("[Catalog] Catalog seeded", "file", path, "sounds", seeded)
	}
	return nil
}
