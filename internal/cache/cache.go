// Package cache provides a file-backed response cache for derived
// artifacts (summaries, quizzes, keyword lists, study questions).
//
// Entries live at <data_root>/<course_id>/cache/<feature_key>.json and
// are invalidated wholesale when a course's document set changes. The
// cache is strictly best-effort: IO and parse failures are logged and
// reported as misses, never surfaced to callers. Correctness therefore
// never depends on the cache; only latency does.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"

	"github.com/pnote/pnote/internal/log"
)

// featureKeyPattern restricts feature keys to safe path segments.
var featureKeyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Store is a per-course response cache rooted at a data directory.
// Safe for concurrent use; cross-process access is flock-guarded.
type Store struct {
	dataDir string
	logger  log.Logger
}

// New creates a cache Store rooted at dataDir.
func New(dataDir string, logger log.Logger) *Store {
	return &Store{dataDir: dataDir, logger: logger}
}

// cacheDir returns the cache directory of a course.
func (s *Store) cacheDir(courseID string) string {
	return filepath.Join(s.dataDir, courseID, "cache")
}

// entryPath returns the cache file of a (course, feature) pair.
func (s *Store) entryPath(courseID, featureKey string) string {
	return filepath.Join(s.cacheDir(courseID), featureKey+".json")
}

// Get loads a cached payload into out. Returns true on a hit.
// Any failure (missing file, lock contention, corrupt JSON) is a miss.
func (s *Store) Get(ctx context.Context, courseID, featureKey string, out any) bool {
	if !featureKeyPattern.MatchString(featureKey) {
		s.logger.Warn("rejecting malformed cache feature key", "feature", featureKey)
		return false
	}

	path := s.entryPath(courseID, featureKey)

	// Single non-blocking attempt: a held lock is a miss, never a wait.
	lock := flock.New(path + ".lock")
	locked, err := lock.TryRLock()
	if err != nil || !locked {
		s.logger.Debug("cache read lock unavailable, treating as miss",
			"course", courseID, "feature", featureKey, "error", err)
		return false
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing cache lock", "path", path, "error", err)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading cache entry", "path", path, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("corrupt cache entry, treating as miss", "path", path, "error", err)
		return false
	}

	s.logger.Debug("cache hit", "course", courseID, "feature", featureKey)
	return true
}

// Put stores a payload for a (course, feature) pair. Failures are logged
// and swallowed; a response that could not be cached is still a valid
// response.
func (s *Store) Put(ctx context.Context, courseID, featureKey string, value any) {
	if !featureKeyPattern.MatchString(featureKey) {
		s.logger.Warn("rejecting malformed cache feature key", "feature", featureKey)
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("marshaling cache entry", "course", courseID, "feature", featureKey, "error", err)
		return
	}

	if err := os.MkdirAll(s.cacheDir(courseID), 0o750); err != nil {
		s.logger.Warn("creating cache directory", "course", courseID, "error", err)
		return
	}

	path := s.entryPath(courseID, featureKey)

	// Single non-blocking attempt: a held lock skips the write, never waits.
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		s.logger.Debug("cache write lock unavailable, skipping write",
			"course", courseID, "feature", featureKey, "error", err)
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing cache lock", "path", path, "error", err)
		}
	}()

	// Write-then-rename keeps readers from observing a partial entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		s.logger.Warn("writing cache entry", "path", path, "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Warn("publishing cache entry", "path", path, "error", err)
		_ = os.Remove(tmp)
		return
	}

	s.logger.Debug("cache write", "course", courseID, "feature", featureKey, "bytes", len(data))
}

// Invalidate removes the whole cache directory of a course. Called on
// every chunk-membership change; a missing directory is a no-op.
func (s *Store) Invalidate(courseID string) error {
	dir := s.cacheDir(courseID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("invalidating cache for course %q: %w", courseID, err)
	}
	s.logger.Debug("cache invalidated", "course", courseID)
	return nil
}
