package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/pnote/pnote/internal/log"
)

type mockCounter struct {
	docs   int
	chunks int
	exists bool
	err    error
}

func (m *mockCounter) Counts(context.Context, string) (int, int, bool, error) {
	return m.docs, m.chunks, m.exists, m.err
}

// TestNewValidation tests constructor argument checks.
func TestNewValidation(t *testing.T) {
	if _, err := New(nil, 1000, log.NewNop()); err == nil {
		t.Error("New() with nil counter should fail")
	}
	if _, err := New(&mockCounter{}, 0, log.NewNop()); err == nil {
		t.Error("New() with zero chunk size should fail")
	}
	if _, err := New(&mockCounter{}, 1000, nil); err != nil {
		t.Errorf("New() with nil logger should default it: %v", err)
	}
}

// TestStatistics tests count pass-through and token estimation.
func TestStatistics(t *testing.T) {
	s, err := New(&mockCounter{docs: 3, chunks: 42, exists: true}, 1000, log.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	stats, err := s.Statistics(context.Background(), "go-basics")
	if err != nil {
		t.Fatalf("Statistics() unexpected error: %v", err)
	}
	if stats.CourseID != "go-basics" {
		t.Errorf("CourseID = %q", stats.CourseID)
	}
	if stats.DocumentCount != 3 || stats.ChunkCount != 42 {
		t.Errorf("counts = %d docs, %d chunks", stats.DocumentCount, stats.ChunkCount)
	}
	if stats.EstimatedTokens != 42000 {
		t.Errorf("EstimatedTokens = %d, want 42000", stats.EstimatedTokens)
	}
}

// TestStatisticsEmptyCourse tests that an existing empty course reports
// zeros rather than an error.
func TestStatisticsEmptyCourse(t *testing.T) {
	s, err := New(&mockCounter{exists: true}, 1000, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	stats, err := s.Statistics(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Statistics() unexpected error: %v", err)
	}
	if stats.DocumentCount != 0 || stats.ChunkCount != 0 || stats.EstimatedTokens != 0 {
		t.Errorf("empty course stats = %+v, want zeros", stats)
	}
}

// TestStatisticsMissingCourse tests the typed not-found outcome.
func TestStatisticsMissingCourse(t *testing.T) {
	s, err := New(&mockCounter{exists: false}, 1000, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Statistics(context.Background(), "ghost"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Statistics() = %v, want ErrCourseNotFound", err)
	}
}

// TestStatisticsStoreFailure tests error propagation.
func TestStatisticsStoreFailure(t *testing.T) {
	s, err := New(&mockCounter{err: errors.New("db down")}, 1000, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Statistics(context.Background(), "go-basics"); err == nil {
		t.Error("Statistics() should surface store failures")
	}
}
