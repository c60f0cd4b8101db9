// Package ingest turns sources into stored, searchable chunks:
// hash, dedup, extract, chunk, embed and store. Uploaded file bytes are
// persisted under the course directory so documents can be re-examined
// and cleaned up on deletion.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pnote/pnote/internal/course"
	"github.com/pnote/pnote/internal/extract"
	"github.com/pnote/pnote/internal/log"
)

// ErrSourceTooLarge indicates an upload above the configured size cap.
// Rejected before any hashing or extraction.
var ErrSourceTooLarge = errors.New("source exceeds upload size limit")

// ErrUnsupportedFileType indicates a file extension the pipeline cannot
// extract text from.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Store is the course-store surface the pipeline needs.
type Store interface {
	HashExists(ctx context.Context, courseID, hash string) (bool, error)
	AddChunks(ctx context.Context, courseID string, texts []string, sourceName, hash string) (int, error)
	DocsDir(courseID string) string
}

// Extractor converts a source to plain text.
type Extractor interface {
	Extract(ctx context.Context, source extract.Source) (string, error)
}

// Splitter chunks extracted text.
type Splitter interface {
	Split(text string) []string
}

// Status classifies the outcome of ingesting one source.
type Status string

const (
	// StatusAdded means the document was extracted, chunked and stored.
	StatusAdded Status = "added"
	// StatusDuplicate means the content hash was already ingested.
	StatusDuplicate Status = "duplicate"
	// StatusFailed means the source was rejected or extraction failed.
	StatusFailed Status = "failed"
)

// Result reports the outcome of one source. Err is set when Status is
// StatusFailed.
type Result struct {
	SourceName string
	Status     Status
	Hash       string
	Chunks     int
	Err        error
}

// Pipeline ingests sources into a course.
//
// Pipeline is safe for concurrent use; per-course write ordering is the
// store's concern.
type Pipeline struct {
	store     Store
	extractor Extractor
	splitter  Splitter
	maxBytes  int64
	logger    log.Logger
}

// New creates a Pipeline. maxBytes caps uploaded file sizes.
func New(store Store, extractor Extractor, splitter Splitter, maxBytes int64, logger log.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive, got %d", maxBytes)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{store: store, extractor: extractor, splitter: splitter, maxBytes: maxBytes, logger: logger}, nil
}

// KindForFile maps a file name to its extraction kind.
func KindForFile(name string) (extract.Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return extract.KindPDF, nil
	case ".docx":
		return extract.KindDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(name))
	}
}

// IngestFile ingests an uploaded file. The raw bytes are hashed for
// dedup before any extraction work; on success the upload is persisted
// under the course's docs directory.
func (p *Pipeline) IngestFile(ctx context.Context, courseID, fileName string, data []byte) Result {
	if int64(len(data)) > p.maxBytes {
		return p.fail(fileName, fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, len(data), p.maxBytes))
	}

	kind, err := KindForFile(fileName)
	if err != nil {
		return p.fail(fileName, err)
	}

	hash := Sum(data)
	src := extract.FileSource{FileName: fileName, Data: data, Kind: kind}

	result := p.ingest(ctx, courseID, src, hash)
	if result.Status == StatusAdded {
		p.persistUpload(courseID, fileName, data)
	}
	return result
}

// IngestWeb ingests a web page. The canonicalized URL string is the
// document identity: the same address never fetches twice.
func (p *Pipeline) IngestWeb(ctx context.Context, courseID, rawURL string) Result {
	canonical, err := CanonicalizeURL(rawURL)
	if err != nil {
		return p.fail(rawURL, err)
	}
	return p.ingest(ctx, courseID, extract.WebSource{URL: canonical}, Sum([]byte(canonical)))
}

// IngestYouTube ingests a YouTube transcript, keyed by canonical URL.
func (p *Pipeline) IngestYouTube(ctx context.Context, courseID, rawURL string) Result {
	canonical, err := CanonicalizeURL(rawURL)
	if err != nil {
		return p.fail(rawURL, err)
	}
	return p.ingest(ctx, courseID, extract.YouTubeSource{URL: canonical}, Sum([]byte(canonical)))
}

// FileInput pairs an upload name with its bytes for batch ingestion.
type FileInput struct {
	Name string
	Data []byte
}

// IngestFiles ingests a batch sequentially, reporting per item and
// continuing past failures. Sequential order keeps within-batch dedup
// deterministic: the first copy wins, later copies are duplicates.
func (p *Pipeline) IngestFiles(ctx context.Context, courseID string, files []FileInput) []Result {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, p.IngestFile(ctx, courseID, f.Name, f.Data))
	}
	return results
}

// ingest runs the shared tail of the pipeline: dedup, extract, chunk,
// store. Dedup runs before extraction so known documents cost nothing.
func (p *Pipeline) ingest(ctx context.Context, courseID string, src extract.Source, hash string) Result {
	exists, err := p.store.HashExists(ctx, courseID, hash)
	if err != nil {
		return p.fail(src.Name(), fmt.Errorf("checking for duplicate: %w", err))
	}
	if exists {
		p.logger.Info("skipping duplicate source", "course", courseID, "source", src.Name())
		return Result{SourceName: src.Name(), Status: StatusDuplicate, Hash: hash}
	}

	text, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return p.fail(src.Name(), err)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return p.fail(src.Name(), &extract.Error{SourceName: src.Name(), Reason: "no text content found"})
	}

	n, err := p.store.AddChunks(ctx, courseID, chunks, src.Name(), hash)
	if err != nil {
		return p.fail(src.Name(), fmt.Errorf("storing chunks: %w", err))
	}

	p.logger.Info("source ingested",
		"course", courseID,
		"source", src.Name(),
		"chunks", n)
	return Result{SourceName: src.Name(), Status: StatusAdded, Hash: hash, Chunks: n}
}

// persistUpload writes the original upload under the course's docs
// directory as <slug>-<suffix><ext>. The random suffix avoids collisions
// between distinct files sharing a name. Best-effort: the chunks are
// already stored, a failed copy only loses the browsable original.
func (p *Pipeline) persistUpload(courseID, fileName string, data []byte) {
	dir := p.store.DocsDir(courseID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		p.logger.Warn("creating docs directory", "course", courseID, "error", err)
		return
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	slug := course.Slugify(fileName)
	if slug == "" {
		slug = "doc"
	}
	suffix := uuid.NewString()[:8]

	path := filepath.Join(dir, fmt.Sprintf("%s-%s%s", slug, suffix, ext))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		p.logger.Warn("persisting upload", "path", path, "error", err)
		return
	}
	p.logger.Debug("upload persisted", "course", courseID, "path", path)
}

func (p *Pipeline) fail(sourceName string, err error) Result {
	p.logger.Warn("ingestion failed", "source", sourceName, "error", err)
	return Result{SourceName: sourceName, Status: StatusFailed, Err: err}
}
