package course

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/pnote/pnote/internal/log"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Cache is the response-cache surface the store needs for invalidation.
type Cache interface {
	Invalidate(courseID string) error
}

// contextSeparator joins sampled chunks for whole-course prompts.
const contextSeparator = "\n---\n"

// Store manages courses and their chunk collections.
//
// Store is safe for concurrent use by multiple goroutines. Mutations of a
// course's chunk set are serialized with a per-course advisory lock, and
// the cache invalidation happens inside that locked transaction so a
// concurrent add can never re-cache results derived from deleted chunks.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	cache    Cache
	dataDir  string
	logger   log.Logger
}

// NewStore creates a course Store.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, cache Cache, dataDir string, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, embedder: embedder, cache: cache, dataDir: dataDir, logger: logger}, nil
}

// Dir returns the on-disk directory of a course.
func (s *Store) Dir(courseID string) string {
	return filepath.Join(s.dataDir, courseID)
}

// DocsDir returns the directory holding a course's uploaded files.
func (s *Store) DocsDir(courseID string) string {
	return filepath.Join(s.dataDir, courseID, "docs")
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Create registers a course and its directory tree. Idempotent: creating
// an existing course returns its id without error.
func (s *Store) Create(ctx context.Context, displayName string) (string, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}

	courseID := Slugify(displayName)
	if err := ValidateCourseID(courseID); err != nil {
		return "", fmt.Errorf("%w: %q slugifies to %q", ErrInvalidName, displayName, courseID)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO courses (id, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		courseID, displayName,
	)
	if err != nil {
		return "", fmt.Errorf("creating course %q: %w", courseID, err)
	}

	// Directory creation is idempotent too.
	if err := os.MkdirAll(filepath.Join(s.Dir(courseID), "cache"), 0o750); err != nil {
		return "", fmt.Errorf("creating course directory: %w", err)
	}
	if err := os.MkdirAll(s.DocsDir(courseID), 0o750); err != nil {
		return "", fmt.Errorf("creating docs directory: %w", err)
	}

	s.logger.Debug("course created", "course", courseID, "display_name", displayName)
	return courseID, nil
}

// List returns all courses ordered by creation time. List never fails:
// backend errors are logged and an empty slice is returned so callers can
// always render a listing.
func (s *Store) List(ctx context.Context) []Info {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, created_at FROM courses ORDER BY created_at, id`)
	if err != nil {
		s.logger.Error("listing courses", "error", err)
		return []Info{}
	}
	defer rows.Close()

	var courses []Info
	for rows.Next() {
		var c Info
		if err := rows.Scan(&c.ID, &c.DisplayName, &c.CreatedAt); err != nil {
			s.logger.Error("scanning course row", "error", err)
			return []Info{}
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("iterating courses", "error", err)
		return []Info{}
	}

	if courses == nil {
		courses = []Info{}
	}
	return courses
}

// Exists reports whether a course is registered.
func (s *Store) Exists(ctx context.Context, courseID string) (bool, error) {
	return courseExists(ctx, s.pool, courseID)
}

// courseExists runs the registration check on the pool or on an open
// transaction.
func courseExists(ctx context.Context, q querier, courseID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking course %q: %w", courseID, err)
	}
	return exists, nil
}

// Delete removes a course: its chunk rows, its registration and its
// on-disk directory. Deleting an unknown course is not an error.
func (s *Store) Delete(ctx context.Context, courseID string) error {
	err := s.withCourseLock(ctx, courseID, func(tx pgx.Tx) error {
		exists, err := courseExists(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
		// chunks cascade from the courses FK
		if _, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, courseID); err != nil {
			return fmt.Errorf("deleting course %q: %w", courseID, err)
		}
		if err := s.cache.Invalidate(courseID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.RemoveAll(s.Dir(courseID)); err != nil {
		return fmt.Errorf("removing course directory: %w", err)
	}

	s.logger.Info("course deleted", "course", courseID)
	return nil
}

// HashExists reports whether a document with the given content hash is
// already ingested. An unknown course simply has no documents.
func (s *Store) HashExists(ctx context.Context, courseID, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM chunks WHERE course_id = $1 AND content_hash = $2
		 )`,
		courseID, hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking content hash: %w", err)
	}
	return exists, nil
}

// AddChunks embeds and stores the chunk texts of one document. Every
// chunk carries the source name and content hash; ids are unique across
// re-ingestions of the same source name. Returns the number of chunks
// stored; an empty slice stores nothing and returns 0.
func (s *Store) AddChunks(ctx context.Context, courseID string, texts []string, sourceName, hash string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}

	// Embed outside the transaction so no DB connection is held during
	// the slow model calls.
	vectors := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
		vec, err := s.embed(embedCtx, text)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("embedding chunk %d/%d: %w", i+1, len(texts), err)
		}
		vectors[i] = vec
	}

	ids := ChunkIDs(sourceName, len(texts))

	err := s.withCourseLock(ctx, courseID, func(tx pgx.Tx) error {
		for i, text := range texts {
			_, err := tx.Exec(ctx,
				`INSERT INTO chunks (id, course_id, seq, content, embedding, source_name, content_hash)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ids[i], courseID, i, text, vectors[i], sourceName, hash,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %d/%d: %w", i+1, len(texts), err)
			}
		}
		// Membership changed; stale derived artifacts must not survive
		// the commit.
		return s.cache.Invalidate(courseID)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("chunks added",
		"course", courseID,
		"source", sourceName,
		"chunks", len(texts))
	return len(texts), nil
}

// Query returns the k chunk texts most similar to the query text,
// ordered by cosine distance ascending.
func (s *Store) Query(ctx context.Context, courseID, text string, k int) ([]string, error) {
	if strings.TrimSpace(text) == "" || k <= 0 {
		return []string{}, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content
		 FROM chunks
		 WHERE course_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		courseID, vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanTexts(rows)
}

// ListDocuments returns the ingested documents of a course, grouped by
// content hash.
func (s *Store) ListDocuments(ctx context.Context, courseID string) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content_hash, source_name, COUNT(*) AS chunk_count
		 FROM chunks
		 WHERE course_id = $1
		 GROUP BY content_hash, source_name
		 ORDER BY MIN(created_at), content_hash`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Hash, &d.Name, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes all chunks of a document and its stored upload
// file when one exists. Deleting an absent hash is a no-op that still
// leaves the cache intact.
func (s *Store) DeleteDocument(ctx context.Context, courseID, hash string) error {
	var sourceName string
	var removed int64

	err := s.withCourseLock(ctx, courseID, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT source_name FROM chunks
			 WHERE course_id = $1 AND content_hash = $2
			 LIMIT 1`,
			courseID, hash,
		).Scan(&sourceName)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("looking up document %s: %w", hash, err)
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM chunks WHERE course_id = $1 AND content_hash = $2`,
			courseID, hash,
		)
		if err != nil {
			return fmt.Errorf("deleting document chunks: %w", err)
		}
		removed = tag.RowsAffected()

		return s.cache.Invalidate(courseID)
	})
	if err != nil {
		return err
	}

	if removed == 0 {
		s.logger.Debug("document not found, nothing deleted", "course", courseID, "hash", hash)
		return nil
	}

	s.removeStoredFile(courseID, sourceName)

	s.logger.Info("document deleted",
		"course", courseID,
		"source", sourceName,
		"chunks", removed)
	return nil
}

// removeStoredFile deletes the persisted upload of a source, if any.
// Stored files are named <slug(source)>-<suffix>; a failed removal only
// leaks disk space, so it is logged and swallowed.
func (s *Store) removeStoredFile(courseID, sourceName string) {
	slug := Slugify(sourceName)
	if slug == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.DocsDir(courseID), slug+"-*"))
	if err != nil {
		s.logger.Warn("globbing stored files", "course", courseID, "source", sourceName, "error", err)
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			s.logger.Warn("removing stored file", "path", m, "error", err)
		}
	}
}

// SampleContext returns up to maxChunks chunk texts joined with a
// separator, in ingestion order. Used as whole-course context for
// summaries and other derived artifacts. Returns "" when the course has
// no chunks or does not exist.
func (s *Store) SampleContext(ctx context.Context, courseID string, maxChunks int) (string, error) {
	if maxChunks <= 0 {
		return "", nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content
		 FROM chunks
		 WHERE course_id = $1
		 ORDER BY created_at, id
		 LIMIT $2`,
		courseID, maxChunks,
	)
	if err != nil {
		return "", fmt.Errorf("sampling context: %w", err)
	}
	defer rows.Close()

	texts, err := scanTexts(rows)
	if err != nil {
		return "", err
	}
	return strings.Join(texts, contextSeparator), nil
}

// Counts returns the document and chunk counts of a course.
// exists is false when the course is not registered.
func (s *Store) Counts(ctx context.Context, courseID string) (docs, chunks int, exists bool, err error) {
	exists, err = s.Exists(ctx, courseID)
	if err != nil || !exists {
		return 0, 0, exists, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT content_hash), COUNT(*)
		 FROM chunks
		 WHERE course_id = $1`,
		courseID,
	).Scan(&docs, &chunks)
	if err != nil {
		return 0, 0, true, fmt.Errorf("counting chunks: %w", err)
	}
	return docs, chunks, true, nil
}

// withCourseLock runs fn inside a transaction holding the per-course
// advisory lock. pg_advisory_xact_lock releases automatically at
// commit/rollback, serializing concurrent mutations of one course
// without blocking others.
func (s *Store) withCourseLock(ctx context.Context, courseID string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, courseID); err != nil {
		return fmt.Errorf("acquiring advisory lock: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// scanTexts reads a single text column from pgx.Rows.
func scanTexts(rows pgx.Rows) ([]string, error) {
	texts := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning chunk text: %w", err)
		}
		texts = append(texts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk texts: %w", err)
	}
	return texts, nil
}

// ChunkIDs builds the ids for one document's chunks: the slugified
// source name, the chunk index and a millisecond timestamp shared by the
// batch. The timestamp keeps ids unique when the same source name is
// re-ingested after deletion. Ids are scoped per course; the chunks key
// includes the course id.
func ChunkIDs(sourceName string, n int) []string {
	slug := Slugify(sourceName)
	if slug == "" {
		slug = "doc"
	}
	ts := time.Now().UnixMilli()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d-%d", slug, i, ts)
	}
	return ids
}
