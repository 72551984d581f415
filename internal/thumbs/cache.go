package thumbs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"homedrive/internal/logging"
)

// Store maps ContentKeys to cached thumbnail files on disk.
//
// Writes go through a temporary file and a rename, so a concurrent reader
// observes either nothing or the complete entry, never a partial file.
type Store struct {
	dir     string
	dirOnce sync.Once
	dirErr  error
}

// NewStore creates a Store rooted at dir. The directory is created lazily on
// first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) ensureDir() error {
	s.dirOnce.Do(func() {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			s.dirErr = fmt.Errorf("failed to create cache dir %s: %w", s.dir, err)
		}
	})
	return s.dirErr
}

// Lookup returns the path of the cache entry for key, if present.
// A miss is not an error.
func (s *Store) Lookup(key ContentKey) (string, bool) {
	return s.LookupName(key.Filename())
}

// LookupName is Lookup for a raw entry name (used for the full-resolution
// intermediate entries).
func (s *Store) LookupName(name string) (string, bool) {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Create opens a temporary file in the cache directory for a pending write.
// Commit or Discard must be called on it.
func (s *Store) Create() (*os.File, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return os.CreateTemp(s.dir, ".tmp-*")
}

// Commit renames a temporary file into place as the entry for name.
func (s *Store) Commit(tmpPath, name string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to commit cache entry %s: %w", name, err)
	}
	return path, nil
}

// Discard removes an abandoned temporary file.
func (s *Store) Discard(tmpPath string) {
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to discard temp cache file %s: %v", tmpPath, err)
	}
}

// Write atomically stores the contents of r as the entry for name and
// returns the entry path.
func (s *Store) Write(name string, r io.Reader) (string, error) {
	tmp, err := s.Create()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		s.Discard(tmp.Name())
		return "", fmt.Errorf("failed to write cache entry %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		s.Discard(tmp.Name())
		return "", fmt.Errorf("failed to close cache entry %s: %w", name, err)
	}
	return s.Commit(tmp.Name(), name)
}

// Invalidate deletes every cache entry whose name starts with the given
// content hash, covering all sizes and fits generated for one source.
// It returns the number of entries removed.
func (s *Store) Invalidate(hashPrefix string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), hashPrefix) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to delete cache entry %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Debug("Invalidated %d cache entries for hash %s", removed, hashPrefix)
	}
	return removed, nil
}

// Size walks the cache directory and returns total bytes and entry count.
func (s *Store) Size() (int64, int, error) {
	var size int64
	count := 0

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size += info.Size()
		count++
	}
	return size, count, nil
}
