// Package course manages per-topic workspaces backed by PostgreSQL +
// pgvector. Each course owns one vector collection (chunk rows keyed by
// course id) and one on-disk directory holding uploaded documents and the
// response cache.
package course

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const (
	// VectorDimension is the embedding dimensionality stored in the
	// chunks table. gemini-embedding-001 supports Matryoshka truncation;
	// 768 keeps the index compact with minimal retrieval loss.
	VectorDimension int32 = 768

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout = 30 * time.Second

	// MinCourseIDLength and MaxCourseIDLength bound course slugs.
	MinCourseIDLength = 3
	MaxCourseIDLength = 63
)

// ErrInvalidName indicates a course display name that slugifies to an
// unusable id (empty, too short, too long).
var ErrInvalidName = errors.New("invalid course name")

// Info describes a course for listings.
type Info struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// DocumentInfo describes one ingested document, grouped by content hash.
type DocumentInfo struct {
	Hash       string
	Name       string
	ChunkCount int
}

// Slugify converts a display name to a course id: lowercase ASCII
// letters, digits and single hyphens. Runs of other characters collapse
// to one hyphen; leading and trailing hyphens are trimmed.
func Slugify(name string) string {
	var sb strings.Builder
	lastHyphen := true // suppress leading hyphen

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Non-ASCII letters have no stable slug form; drop them.
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if len(slug) > MaxCourseIDLength {
		slug = strings.Trim(slug[:MaxCourseIDLength], "-")
	}
	return slug
}

// ValidateCourseID checks a slug against the course id grammar.
func ValidateCourseID(id string) error {
	if len(id) < MinCourseIDLength || len(id) > MaxCourseIDLength {
		return ErrInvalidName
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return ErrInvalidName
		}
	}
	if id[0] == '-' || id[len(id)-1] == '-' {
		return ErrInvalidName
	}
	return nil
}
