package cas

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"bitharbor/internal/media"
)

var (
	// ErrSourceNotFound reports a missing or unreadable input path.
	ErrSourceNotFound = errors.New("source file not found")
	// ErrDiskFull reports insufficient space in the pool volume.
	ErrDiskFull = errors.New("insufficient disk space")
)

// Store is a content-addressed file pool. Files live under
// <root>/<modality>/<digest[:2]>/<digest><ext>; a digest is stored at most
// once and the pool owns the stored path for its whole lifetime.
type Store struct {
	root string
}

// New creates a pool rooted at the given directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the pool root directory.
func (s *Store) Root() string {
	return s.root
}

// PathFor returns the deterministic pool location for a digest. The shard
// directory keyed by the first digest byte bounds per-directory fan-out.
func (s *Store) PathFor(modality media.Modality, digest, ext string) string {
	shard := digest
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, string(modality), shard, digest+strings.ToLower(ext))
}

// Store places the source file into the pool under its digest-derived path.
// When the digest is already present the existing path is returned without
// copying. The copy is atomic with respect to crash: the file is written to
// a temporary name in the destination directory, synced, and renamed into
// place.
func (s *Store) Store(sourcePath string, modality media.Modality, digest string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return "", fmt.Errorf("stat source: %w", err)
	}

	dest := s.PathFor(modality, digest, filepath.Ext(sourcePath))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create shard directory: %w", err)
	}

	if err := checkFreeSpace(destDir, info.Size()); err != nil {
		return "", err
	}

	if err := copyAtomic(sourcePath, destDir, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyAtomic(sourcePath, destDir, dest string) error {
	in, err := os.Open(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(destDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		if errors.Is(err, unix.ENOSPC) {
			return fmt.Errorf("%w: writing %s", ErrDiskFull, dest)
		}
		return fmt.Errorf("copy into pool: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync pool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close pool file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("publish pool file: %w", err)
	}
	return nil
}

func checkFreeSpace(dir string, need int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// Preflight only; the copy itself still reports ENOSPC.
		return nil
	}
	avail := int64(stat.Bavail) * int64(stat.Bsize)
	if avail < need {
		return fmt.Errorf("%w: need %d bytes, %d available", ErrDiskFull, need, avail)
	}
	return nil
}
