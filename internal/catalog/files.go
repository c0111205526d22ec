package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Library manages the on-disk audio payloads. A sound may have several
// payload variants (stem.mp3, stem.ogg) sharing one logical filename;
// the stem is the catalog filename.
type Library struct {
	dir string
}

// NewLibrary opens the payload directory, creating it when absent.
func NewLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	return &Library{dir: dir}, nil
}

// Variants returns the payload file names (with extension) whose stem
// matches filename.
func (l *Library) Variants(filename string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == filename {
			out = append(out, name)
		}
	}
	return out, nil
}

// HasPayload reports whether at least one variant exists for filename.
func (l *Library) HasPayload(filename string) bool {
	variants, err := l.Variants(filename)
	return err == nil && len(variants) > 0
}

// Write stores one payload variant atomically: the bytes land in a
// temporary file, are synced, and only then renamed into place, so a
// crash mid-upload never leaves a half-written payload.
func (l *Library) Write(name string, r io.Reader) error {
	path := filepath.Join(l.dir, name)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create payload %s: %w", name, err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write payload %s: %w", name, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync payload %s: %w", name, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close payload %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish payload %s: %w", name, err)
	}

	return nil
}

// Remove deletes a single payload file by its full name.
func (l *Library) Remove(name string) error {
	return os.Remove(filepath.Join(l.dir, name))
}

// RemoveAll deletes every variant of filename. Failures are joined and
// reported; deletion never rolls back.
func (l *Library) RemoveAll(filename string) error {
	variants, err := l.Variants(filename)
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range variants {
		if err := os.Remove(filepath.Join(l.dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("remove payload %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// renameState tracks how far one variant has progressed through a
// payload rename.
type renameState int

const (
	renamePending renameState = iota
	renameBackedUp
	renameSwapped
	renameCommitted
	renameRolledBack
)

// payloadRename carries one variant through backup, swap and commit.
// The backup copy exists from BackedUp until Committed, so the original
// bytes are recoverable at every intermediate state.
type payloadRename struct {
	oldPath    string
	newPath    string
	backupPath string
	state      renameState
}

// Rename moves every payload variant from the old stem to the new one,
// all-or-rollback: each variant is backed up before anything
// destructive happens, and one variant failing to swap restores every
// variant from its backup. A failed restore is logged, not escalated;
// the rename reports failure either way.
func (l *Library) Rename(oldFilename, newFilename string) error {
	variants, err := l.Variants(oldFilename)
	if err != nil {
		return err
	}

	renames := make([]*payloadRename, 0, len(variants))
	for _, name := range variants {
		ext := filepath.Ext(name)
		renames = append(renames, &payloadRename{
			oldPath:    filepath.Join(l.dir, name),
			newPath:    filepath.Join(l.dir, newFilename+ext),
			backupPath: filepath.Join(l.dir, name+".bak"),
		})
	}

	// Phase 1: back up every variant before touching any original.
	for _, r := range renames {
		if err := copyFile(r.oldPath, r.backupPath); err != nil {
			l.dropBackups(renames)
			return fmt.Errorf("backup %s: %w", r.oldPath, err)
		}
		r.state = renameBackedUp
	}

	// Phase 2: swap. Any failure rolls every variant back.
	for _, r := range renames {
		if err := os.Rename(r.oldPath, r.newPath); err != nil {
			l.rollback(renames)
			return fmt.Errorf("rename %s: %w", r.oldPath, err)
		}
		r.state = renameSwapped
	}

	// Phase 3: commit by dropping the backups.
	for _, r := range renames {
		if err := os.Remove(r.backupPath); err != nil {
			slog.Warn("[Library] Stray backup left behind after rename",
				"backup", r.backupPath, "error", err)
		}
		r.state = renameCommitted
	}

	return nil
}

// rollback restores every backed-up or swapped variant to its original
// path. Best effort: a variant whose restore fails is logged for manual
// inspection and the remaining variants are still restored.
func (l *Library) rollback(renames []*payloadRename) {
	for _, r := range renames {
		switch r.state {
		case renameSwapped:
			if err := os.Remove(r.newPath); err != nil {
				slog.Error("[Library] Rollback could not remove swapped payload",
					"path", r.newPath, "error", err)
			}
			fallthrough
		case renameBackedUp:
			if err := copyFile(r.backupPath, r.oldPath); err != nil {
				slog.Error("[Library] Rollback could not restore payload from backup",
					"path", r.oldPath, "backup", r.backupPath, "error", err)
				r.state = renameRolledBack
				continue
			}
			if err := os.Remove(r.backupPath); err != nil {
				slog.Warn("[Library] Stray backup left behind after rollback",
					"backup", r.backupPath, "error", err)
			}
			r.state = renameRolledBack
		}
	}
}

// dropBackups removes backups taken before a phase-1 failure. The
// originals were never touched, so nothing needs restoring.
func (l *Library) dropBackups(renames []*payloadRename) {
	for _, r := range renames {
		if r.state != renameBackedUp {
			continue
		}
		if err := os.Remove(r.backupPath); err != nil {
			slog.Warn("[Library] Stray backup left behind",
				"backup", r.backupPath, "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
