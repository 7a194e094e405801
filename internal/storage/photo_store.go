// Package storage keeps contact profile photos on disk, one directory per
// (owner, contact) pair.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"contactbook/internal/apperr"
	"contactbook/pkg/logger"

	"github.com/google/uuid"
)

const (
	stageMarker  = ".stage-"
	backupMarker = ".bak-"
	fallbackName = "photo"
)

// ProfileImageNotFound is the caller-visible message of a missing photo.
const ProfileImageNotFound = "Profile Image Not Found"

// Upload is a photo received by the transport layer and parked in a
// temporary file.
type Upload struct {
	TempPath     string
	OriginalName string
	Size         int64
}

// PhotoStore places, finds and removes profile photos under root.
type PhotoStore struct {
	root string
	log  *logger.Logger
}

// NewPhotoStore creates the root directory if needed.
func NewPhotoStore(root string, log *logger.Logger) (*PhotoStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo root %s: %w", root, err)
	}
	return &PhotoStore{root: root, log: log.With("component", "photo_store")}, nil
}

// Root returns the directory photos are stored under.
func (s *PhotoStore) Root() string {
	return s.root
}

func (s *PhotoStore) ownerDir(owner uint64) string {
	return filepath.Join(s.root, strconv.FormatUint(owner, 10))
}

// Dir returns the directory holding the photo of a contact.
func (s *PhotoStore) Dir(owner, contact uint64) string {
	return filepath.Join(s.ownerDir(owner), strconv.FormatUint(contact, 10))
}

// Place moves upload into the directory of (owner, contact), replacing what
// was there. The previous directory is kept aside until the returned
// Placement is committed or reverted. On failure nothing is left changed.
func (s *PhotoStore) Place(upload Upload, owner, contact uint64) (*Placement, error) {
	ownerDir := s.ownerDir(owner)
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return nil, apperr.Filesystem(fmt.Errorf("failed to create %s: %w", ownerDir, err))
	}

	key := strconv.FormatUint(contact, 10)
	stage := filepath.Join(ownerDir, "."+key+stageMarker+uuid.NewString())
	if err := os.Mkdir(stage, 0o755); err != nil {
		return nil, apperr.Filesystem(fmt.Errorf("failed to create staging dir: %w", err))
	}
	if err := copyFile(upload.TempPath, filepath.Join(stage, photoName(upload.OriginalName))); err != nil {
		s.discard(stage)
		return nil, apperr.Filesystem(err)
	}

	target := filepath.Join(ownerDir, key)
	var backup string
	switch _, err := os.Stat(target); {
	case err == nil:
		backup = filepath.Join(ownerDir, "."+key+backupMarker+uuid.NewString())
		if err := os.Rename(target, backup); err != nil {
			s.discard(stage)
			return nil, apperr.Filesystem(fmt.Errorf("failed to set aside %s: %w", target, err))
		}
	case !errors.Is(err, os.ErrNotExist):
		s.discard(stage)
		return nil, apperr.Filesystem(fmt.Errorf("failed to stat %s: %w", target, err))
	}

	if err := os.Rename(stage, target); err != nil {
		if backup != "" {
			if rerr := os.Rename(backup, target); rerr != nil {
				s.log.Error("failed to restore photo dir", "dir", target, "backup", backup, "error", rerr)
			}
		}
		s.discard(stage)
		return nil, apperr.Filesystem(fmt.Errorf("failed to move photo into %s: %w", target, err))
	}

	if err := os.Remove(upload.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to remove uploaded temp file", "path", upload.TempPath, "error", err)
	}
	return &Placement{store: s, dir: target, backup: backup}, nil
}

// Lookup returns the path of the current photo of a contact.
func (s *PhotoStore) Lookup(owner, contact uint64) (string, error) {
	dir := s.Dir(owner, contact)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound(ProfileImageNotFound)
		}
		return "", apperr.Filesystem(fmt.Errorf("failed to read %s: %w", dir, err))
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", apperr.NotFound(ProfileImageNotFound)
}

// Remove deletes the photo directory of a contact. Removing a missing
// directory is not an error.
func (s *PhotoStore) Remove(owner, contact uint64) error {
	if err := os.RemoveAll(s.Dir(owner, contact)); err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to remove photo of contact %d: %w", contact, err))
	}
	return nil
}

// RemoveOwner deletes every photo of an account.
func (s *PhotoStore) RemoveOwner(owner uint64) error {
	if err := os.RemoveAll(s.ownerDir(owner)); err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to remove photos of account %d: %w", owner, err))
	}
	return nil
}

// Sweep deletes staging and backup directories left behind by a crash.
// Call it before serving traffic.
func (s *PhotoStore) Sweep() (int, error) {
	owners, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read photo root: %w", err)
	}
	removed := 0
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		ownerDir := filepath.Join(s.root, owner.Name())
		entries, err := os.ReadDir(ownerDir)
		if err != nil {
			return removed, fmt.Errorf("failed to read %s: %w", ownerDir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, ".") {
				continue
			}
			if !strings.Contains(name, stageMarker) && !strings.Contains(name, backupMarker) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(ownerDir, name)); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", name, err)
			}
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("swept stale photo directories", "count", removed)
	}
	return removed, nil
}

func (s *PhotoStore) discard(path string) {
	if err := os.RemoveAll(path); err != nil {
		s.log.Warn("failed to discard staging dir", "dir", path, "error", err)
	}
}

// Placement is a photo moved into place whose predecessor is still kept
// aside. Exactly one of Commit or Revert takes effect; later calls are no-ops.
type Placement struct {
	store   *PhotoStore
	dir     string
	backup  string
	settled bool
}

// Dir returns the directory the photo was placed in.
func (p *Placement) Dir() string {
	return p.dir
}

// Commit drops the previous photo.
func (p *Placement) Commit() error {
	if p == nil || p.settled {
		return nil
	}
	p.settled = true
	if p.backup == "" {
		return nil
	}
	if err := os.RemoveAll(p.backup); err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to drop previous photo: %w", err))
	}
	return nil
}

// Revert removes the new photo and restores the previous one, if any.
func (p *Placement) Revert() error {
	if p == nil || p.settled {
		return nil
	}
	p.settled = true
	if err := os.RemoveAll(p.dir); err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to remove new photo: %w", err))
	}
	if p.backup == "" {
		return nil
	}
	if err := os.Rename(p.backup, p.dir); err != nil {
		return apperr.Filesystem(fmt.Errorf("failed to restore previous photo: %w", err))
	}
	return nil
}

func photoName(original string) string {
	name := filepath.Base(filepath.Clean("/" + original))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		return fallbackName + filepath.Ext(name)
	}
	return name
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open upload %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy upload: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", dst, err)
	}
	return out.Close()
}
