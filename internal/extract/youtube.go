package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ErrNoVideoID indicates the URL does not reference a YouTube video.
var ErrNoVideoID = errors.New("no video id in URL")

const timedTextEndpoint = "https://www.youtube.com/api/timedtext"

// transcript mirrors the timedtext XML payload.
type transcript struct {
	Texts []transcriptText `xml:"text"`
}

type transcriptText struct {
	Content string `xml:",chardata"`
}

// ParseVideoID extracts the 11-character video id from the common YouTube
// URL shapes: watch?v=, youtu.be/, embed/, shorts/. A URL without a video
// id is a validation failure, not a network error.
func ParseVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideoID, err)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")

	switch host {
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if id := strings.SplitN(rest, "/", 2)[0]; id != "" {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNoVideoID, rawURL)
}

// extractYouTube fetches the video's caption track and concatenates the
// segments. The configured primary language is tried first, then the
// fallback. A video with no captions in either language is an extraction
// failure.
func (e *Extractor) extractYouTube(ctx context.Context, s YouTubeSource) (string, error) {
	videoID, err := ParseVideoID(s.URL)
	if err != nil {
		return "", newError(s, "parsing video id", err)
	}

	languages := []string{e.cfg.TranscriptLanguage}
	if e.cfg.TranscriptFallback != "" && e.cfg.TranscriptFallback != e.cfg.TranscriptLanguage {
		languages = append(languages, e.cfg.TranscriptFallback)
	}

	for _, lang := range languages {
		text, err := e.fetchTranscript(ctx, videoID, lang)
		if err != nil {
			e.logger.Debug("transcript fetch failed",
				"video_id", videoID,
				"lang", lang,
				"error", err)
			continue
		}
		if text != "" {
			return text, nil
		}
	}

	return "", newError(s, fmt.Sprintf("no transcript available (tried languages: %s)",
		strings.Join(languages, ", ")), nil)
}

// fetchTranscript downloads one caption track via the timedtext endpoint.
// The endpoint answers 200 with an empty body when no track exists for
// the requested language.
func (e *Extractor) fetchTranscript(ctx context.Context, videoID, lang string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	body, err := e.fetch(ctx, timedTextEndpoint+"?"+q.Encode())
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	var tr transcript
	if err := xml.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("parsing transcript XML: %w", err)
	}

	var parts []string
	for _, t := range tr.Texts {
		// Caption text arrives double-escaped ("&amp;#39;").
		if seg := strings.TrimSpace(html.UnescapeString(t.Content)); seg != "" {
			parts = append(parts, seg)
		}
	}

	return strings.Join(parts, " "), nil
}
