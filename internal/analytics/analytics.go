// Package analytics derives usage statistics for a course from stored
// chunk data.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/pnote/pnote/internal/log"
)

// ErrCourseNotFound indicates statistics were requested for a course
// that does not exist.
var ErrCourseNotFound = errors.New("course not found")

// Counter is the course-store surface the service needs.
type Counter interface {
	Counts(ctx context.Context, courseID string) (docs, chunks int, exists bool, err error)
}

// Statistics summarizes a course's stored content. EstimatedTokens is
// the chunk count times the configured chunk size; windows overlap, so
// it overstates unique tokens slightly.
type Statistics struct {
	CourseID        string `json:"course_id"`
	DocumentCount   int    `json:"document_count"`
	ChunkCount      int    `json:"chunk_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Service computes course statistics.
type Service struct {
	counter   Counter
	chunkSize int
	logger    log.Logger
}

// New creates a Service. chunkSize is the token window used at ingest
// time, needed for the token estimate.
func New(counter Counter, chunkSize int, logger log.Logger) (*Service, error) {
	if counter == nil {
		return nil, errors.New("counter is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{counter: counter, chunkSize: chunkSize, logger: logger}, nil
}

// Statistics returns counts for one course, or ErrCourseNotFound.
func (s *Service) Statistics(ctx context.Context, courseID string) (*Statistics, error) {
	docs, chunks, exists, err := s.counter.Counts(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("counting course content: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, courseID)
	}

	stats := &Statistics{
		CourseID:        courseID,
		DocumentCount:   docs,
		ChunkCount:      chunks,
		EstimatedTokens: chunks * s.chunkSize,
	}
	s.logger.Debug("computed statistics",
		"course", courseID,
		"documents", docs,
		"chunks", chunks)
	return stats, nil
}
