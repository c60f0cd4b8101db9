package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pnote/pnote/internal/log"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Vector Databases</title></head>
<body>
  <nav>Home | About | Contact</nav>
  <script>console.log("tracking");</script>
  <article>
    <h1>Vector Databases</h1>
    <p>A vector database stores embeddings and answers nearest-neighbour queries.
    Similarity search over high-dimensional vectors is the core operation, and
    approximate indexes trade a little recall for a lot of speed.</p>
    <p>Popular distance metrics include cosine distance and inner product.
    The choice of metric should match how the embedding model was trained.</p>
  </article>
  <footer>Copyright 2026</footer>
</body>
</html>`

// TestExtractWebArticle tests readable article extraction from a served page.
func TestExtractWebArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := New(Config{}, srv.Client(), log.NewNop())

	got, err := e.Extract(context.Background(), WebSource{URL: srv.URL + "/post"})
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}

	if !strings.Contains(got, "nearest-neighbour queries") {
		t.Errorf("extracted text should contain article body, got: %q", got)
	}
	if strings.Contains(got, "console.log") {
		t.Errorf("extracted text should not contain script content, got: %q", got)
	}
}

// TestExtractWebStripTagsFallback tests the tag-stripping path for pages
// readability cannot treat as an article.
func TestExtractWebStripTagsFallback(t *testing.T) {
	// A bare table page with no article structure.
	page := `<html><body>
<nav>menu</nav>
<table><tr><td>alpha</td><td>beta</td></tr></table>
<footer>foot</footer>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	e := New(Config{}, srv.Client(), log.NewNop())

	got, err := e.Extract(context.Background(), WebSource{URL: srv.URL})
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}

	if !strings.Contains(got, "alpha") || !strings.Contains(got, "beta") {
		t.Errorf("fallback text should contain table cells, got: %q", got)
	}
	if strings.Contains(got, "menu") || strings.Contains(got, "foot") {
		t.Errorf("fallback text should strip nav and footer, got: %q", got)
	}
}

// TestExtractWebFailures tests HTTP errors, invalid URLs and empty pages.
func TestExtractWebFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>   \n\t  </body></html>"))
		}
	}))
	defer srv.Close()

	e := New(Config{}, srv.Client(), log.NewNop())

	tests := []struct {
		name   string
		url    string
		reason string
	}{
		{name: "404", url: srv.URL + "/missing", reason: "fetching page"},
		{name: "empty page", url: srv.URL + "/empty", reason: "no text content"},
		{name: "invalid URL", url: "not-a-url", reason: "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), WebSource{URL: tt.url})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var extErr *Error
			if !errors.As(err, &extErr) {
				t.Fatalf("error should be *extract.Error, got: %T", err)
			}
			if !strings.Contains(extErr.Reason, tt.reason) {
				t.Errorf("Reason = %q, want substring %q", extErr.Reason, tt.reason)
			}
		})
	}
}

// TestErrorFormatting tests the error message shape with and without a cause.
func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")

	withCause := &Error{SourceName: "https://example.com", Reason: "fetching page", Err: cause}
	if !strings.Contains(withCause.Error(), "connection refused") {
		t.Errorf("Error() should include the cause, got: %q", withCause.Error())
	}
	if !errors.Is(withCause, cause) {
		t.Error("errors.Is should match the wrapped cause")
	}

	withoutCause := &Error{SourceName: "notes.pdf", Reason: "no text content found"}
	want := `extracting "notes.pdf": no text content found`
	if withoutCause.Error() != want {
		t.Errorf("Error() = %q, want %q", withoutCause.Error(), want)
	}
}
