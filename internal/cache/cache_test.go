package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/pnote/pnote/internal/log"
)

type payload struct {
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

// TestPutGetRoundTrip tests a basic store and load cycle.
func TestPutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir(), log.NewNop())
	ctx := context.Background()

	in := payload{Summary: "a short summary", Topics: []string{"vectors", "retrieval"}}
	s.Put(ctx, "go-basics", "summary", in)

	var out payload
	if !s.Get(ctx, "go-basics", "summary", &out) {
		t.Fatal("Get() = miss, want hit")
	}
	if out.Summary != in.Summary || len(out.Topics) != 2 {
		t.Errorf("Get() loaded %+v, want %+v", out, in)
	}
}

// TestGetMiss tests misses for absent courses and features.
func TestGetMiss(t *testing.T) {
	s := New(t.TempDir(), log.NewNop())
	ctx := context.Background()

	var out payload
	if s.Get(ctx, "no-such-course", "summary", &out) {
		t.Error("Get() on absent course = hit, want miss")
	}

	s.Put(ctx, "go-basics", "summary", payload{Summary: "x"})
	if s.Get(ctx, "go-basics", "quiz", &out) {
		t.Error("Get() on absent feature = hit, want miss")
	}
}

// TestGetCorruptEntry tests that unparseable JSON is a miss, not an error.
func TestGetCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, log.NewNop())
	ctx := context.Background()

	cacheDir := filepath.Join(dir, "go-basics", "cache")
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		t.Fatalf("creating cache dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "summary.json"), []byte("{not json"), 0o640); err != nil {
		t.Fatalf("writing corrupt entry: %v", err)
	}

	var out payload
	if s.Get(ctx, "go-basics", "summary", &out) {
		t.Error("Get() on corrupt entry = hit, want miss")
	}
}

// TestInvalidateRemovesAllFeatures tests directory-wide invalidation.
func TestInvalidateRemovesAllFeatures(t *testing.T) {
	s := New(t.TempDir(), log.NewNop())
	ctx := context.Background()

	s.Put(ctx, "go-basics", "summary", payload{Summary: "a"})
	s.Put(ctx, "go-basics", "keywords", payload{Summary: "b"})
	s.Put(ctx, "other-course", "summary", payload{Summary: "c"})

	if err := s.Invalidate("go-basics"); err != nil {
		t.Fatalf("Invalidate() unexpected error: %v", err)
	}

	var out payload
	if s.Get(ctx, "go-basics", "summary", &out) {
		t.Error("summary survived invalidation")
	}
	if s.Get(ctx, "go-basics", "keywords", &out) {
		t.Error("keywords survived invalidation")
	}
	if !s.Get(ctx, "other-course", "summary", &out) {
		t.Error("invalidation leaked into another course")
	}
}

// TestInvalidateMissingCourse tests that invalidating an absent course is
// a no-op.
func TestInvalidateMissingCourse(t *testing.T) {
	s := New(t.TempDir(), log.NewNop())
	if err := s.Invalidate("never-created"); err != nil {
		t.Errorf("Invalidate() on absent course: %v", err)
	}
}

// TestMalformedFeatureKey tests that path-escaping feature keys are refused.
func TestMalformedFeatureKey(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, log.NewNop())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "UPPER", "with space", "a/b"} {
		s.Put(ctx, "go-basics", key, payload{Summary: "x"})

		var out payload
		if s.Get(ctx, "go-basics", key, &out) {
			t.Errorf("Get() with feature key %q = hit, want refusal", key)
		}
	}

	// Nothing escaped the course directory.
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err == nil {
		t.Error("path traversal wrote outside the cache directory")
	}
}

// TestLockContentionIsMiss tests that a held entry lock degrades to a
// miss immediately instead of blocking Get or Put.
func TestLockContentionIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, log.NewNop())
	ctx := context.Background()

	s.Put(ctx, "go-basics", "summary", payload{Summary: "cached"})

	// Hold the entry lock exclusively, as a concurrent writer would.
	holder := flock.New(filepath.Join(dir, "go-basics", "cache", "summary.json.lock"))
	held, err := holder.TryLock()
	if err != nil || !held {
		t.Fatalf("acquiring entry lock: held=%v err=%v", held, err)
	}
	defer holder.Unlock()

	done := make(chan bool, 1)
	go func() {
		var out payload
		done <- s.Get(ctx, "go-basics", "summary", &out)
	}()

	select {
	case hit := <-done:
		if hit {
			t.Error("Get() under contention = hit, want miss")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get() blocked on a held lock instead of missing")
	}

	go func() {
		s.Put(ctx, "go-basics", "summary", payload{Summary: "skipped"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Put() blocked on a held lock instead of skipping")
	}

	// The skipped write must not have replaced the entry.
	if err := holder.Unlock(); err != nil {
		t.Fatalf("releasing entry lock: %v", err)
	}
	var out payload
	if !s.Get(ctx, "go-basics", "summary", &out) {
		t.Fatal("Get() after release = miss, want hit")
	}
	if out.Summary != "cached" {
		t.Errorf("entry = %q, want %q", out.Summary, "cached")
	}
}

// TestOverwriteEntry tests that Put replaces an existing payload.
func TestOverwriteEntry(t *testing.T) {
	s := New(t.TempDir(), log.NewNop())
	ctx := context.Background()

	s.Put(ctx, "go-basics", "summary", payload{Summary: "first"})
	s.Put(ctx, "go-basics", "summary", payload{Summary: "second"})

	var out payload
	if !s.Get(ctx, "go-basics", "summary", &out) {
		t.Fatal("Get() = miss, want hit")
	}
	if out.Summary != "second" {
		t.Errorf("Get() = %q, want %q", out.Summary, "second")
	}
}
