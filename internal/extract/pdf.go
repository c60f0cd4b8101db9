package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads every page of a PDF and concatenates the page text.
// Pages that fail to decode are skipped rather than failing the whole
// document; scanned image-only pages commonly yield nothing.
func (e *Extractor) extractPDF(s FileSource) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(s.Data), int64(len(s.Data)))
	if err != nil {
		return "", newError(s, "parsing PDF", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	skipped := 0

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			skipped++
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			skipped++
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if skipped > 0 {
		e.logger.Debug("skipped unreadable PDF pages",
			"source", s.FileName,
			"skipped", skipped,
			"total", numPages)
	}

	return sb.String(), nil
}
