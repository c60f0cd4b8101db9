package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// maxWebPageBytes caps how much of a page body is read. Pages larger than
// this are truncated, not rejected.
const maxWebPageBytes = 10 << 20

// userAgent identifies fetches politely; some sites reject the Go default.
const userAgent = "Mozilla/5.0 (compatible; pnote/1.0; +https://github.com/pnote/pnote)"

// extractWeb fetches a page and extracts its readable text.
// Readability article extraction is tried first; when it yields nothing
// (non-article pages, unusual markup) a tag-stripping pass over the full
// body is used instead, preserving document order.
func (e *Extractor) extractWeb(ctx context.Context, s WebSource) (string, error) {
	pageURL, err := url.Parse(s.URL)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return "", newError(s, "invalid URL", err)
	}

	body, err := e.fetch(ctx, s.URL)
	if err != nil {
		return "", newError(s, "fetching page", err)
	}

	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text, nil
		}
	}

	text, err := stripTags(body)
	if err != nil {
		return "", newError(s, "parsing HTML", err)
	}
	return text, nil
}

// fetch performs a bounded GET of the URL.
func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, webFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxWebPageBytes))
}

// stripTags removes boilerplate elements and returns the remaining body
// text in document order.
func stripTags(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	text := doc.Find("body").Text()
	return normalizeWhitespace(text), nil
}

// normalizeWhitespace collapses runs of blank lines and trims each line.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
