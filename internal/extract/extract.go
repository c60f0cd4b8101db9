// Package extract converts ingestion sources into plain text.
//
// Supported sources: PDF and DOCX files, web pages, YouTube transcripts.
// Every failure mode (network, parse, missing transcript, empty result)
// is reported as a *Error carrying the source name and a human-readable
// reason. Callers batch-ingesting sources rely on this to report per-item
// failures and continue.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pnote/pnote/internal/log"
)

// Kind identifies the file format of a FileSource.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// Source is a tagged union of ingestion inputs.
// Exactly one of the concrete types below satisfies it.
type Source interface {
	// Name returns the human-readable source name used in errors,
	// chunk metadata and document listings.
	Name() string
}

// FileSource is an uploaded file. Data holds the raw bytes; FileName is
// the original upload name.
type FileSource struct {
	FileName string
	Data     []byte
	Kind     Kind
}

func (s FileSource) Name() string { return s.FileName }

// WebSource is a web page fetched by URL.
type WebSource struct {
	URL string
}

func (s WebSource) Name() string { return s.URL }

// YouTubeSource is a YouTube video whose transcript is ingested.
type YouTubeSource struct {
	URL string
}

func (s YouTubeSource) Name() string { return s.URL }

// Error describes a failed extraction. It always names the source so
// batch ingestion can attribute failures per item.
type Error struct {
	SourceName string
	Reason     string
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extracting %q: %s: %v", e.SourceName, e.Reason, e.Err)
	}
	return fmt.Sprintf("extracting %q: %s", e.SourceName, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a *Error for the given source.
func newError(source Source, reason string, err error) *Error {
	return &Error{SourceName: source.Name(), Reason: reason, Err: err}
}

// webFetchTimeout bounds a single page or transcript fetch.
const webFetchTimeout = 15 * time.Second

// Config holds extractor options.
type Config struct {
	// TranscriptLanguage is the preferred YouTube caption language.
	TranscriptLanguage string
	// TranscriptFallback is tried when the preferred language has no track.
	TranscriptFallback string
}

// Extractor converts Sources to plain text. Safe for concurrent use.
type Extractor struct {
	client *http.Client
	cfg    Config
	logger log.Logger
}

// New creates an Extractor. A nil client gets a default with the fetch timeout.
func New(cfg Config, client *http.Client, logger log.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: webFetchTimeout}
	}
	if cfg.TranscriptLanguage == "" {
		cfg.TranscriptLanguage = "en"
	}
	return &Extractor{client: client, cfg: cfg, logger: logger}
}

// Extract returns the plain text of the given source.
// Empty or whitespace-only results are failures: a source that yields no
// text must not silently produce an empty document.
func (e *Extractor) Extract(ctx context.Context, source Source) (string, error) {
	var (
		text string
		err  error
	)

	switch s := source.(type) {
	case FileSource:
		switch s.Kind {
		case KindPDF:
			text, err = e.extractPDF(s)
		case KindDOCX:
			text, err = e.extractDOCX(s)
		default:
			return "", newError(s, fmt.Sprintf("unsupported file kind %q", s.Kind), nil)
		}
	case WebSource:
		text, err = e.extractWeb(ctx, s)
	case YouTubeSource:
		text, err = e.extractYouTube(ctx, s)
	default:
		return "", &Error{SourceName: source.Name(), Reason: "unsupported source type"}
	}

	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(source, "no text content found", nil)
	}

	e.logger.Debug("extracted source",
		"source", source.Name(),
		"chars", len(text))

	return text, nil
}
