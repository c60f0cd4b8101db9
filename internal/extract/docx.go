package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DOCX files are zip archives; the document text lives in word/document.xml
// as paragraphs (<w:p>) of runs (<w:r>) of text nodes (<w:t>).
const docxDocumentPath = "word/document.xml"

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

// extractDOCX unzips the archive and flattens paragraph runs into plain
// text, one line per paragraph.
func (e *Extractor) extractDOCX(s FileSource) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(s.Data), int64(len(s.Data)))
	if err != nil {
		return "", newError(s, "opening DOCX archive", err)
	}

	raw, err := readZipFile(zr, docxDocumentPath)
	if err != nil {
		return "", newError(s, "reading "+docxDocumentPath, err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", newError(s, "parsing "+docxDocumentPath, err)
	}

	var sb strings.Builder
	for _, p := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				line.WriteString(t)
			}
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// readZipFile returns the contents of the named file within the archive.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New("file not found in archive")
}
