// Package ingest extracts plain text from uploaded contract documents.
package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat indicates the upload is in a format the service
// cannot extract text from.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrEmptyDocument indicates extraction produced no usable text.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// ExtractText dispatches on filename extension and content type. DOCX
// archives are unpacked directly; anything that is not DOCX or PDF is
// treated as text-like, matching lenient intake of .txt and .md uploads.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	name := strings.ToLower(filename)
	ctype := strings.ToLower(contentType)

	switch {
	case strings.HasSuffix(name, ".pdf") || strings.Contains(ctype, "pdf"):
		return "", fmt.Errorf("%w: pdf extraction is not available", ErrUnsupportedFormat)
	case strings.HasSuffix(name, ".docx") || strings.Contains(ctype, "word"):
		return extractDocx(data)
	default:
		return extractPlain(data)
	}
}

func extractPlain(data []byte) (string, error) {
	text := string(bytes.ToValidUTF8(data, nil))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// docx paragraph markup, reduced to the elements carrying text runs.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

// extractDocx unpacks word/document.xml from the DOCX zip container and
// joins non-empty paragraph texts with newlines.
func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid docx archive: %v", ErrUnsupportedFormat, err)
	}

	var docXML []byte
	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml: %w", err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("%w: docx archive has no word/document.xml", ErrUnsupportedFormat)
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return "", fmt.Errorf("%w: malformed document.xml: %v", ErrUnsupportedFormat, err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range p.Runs {
			sb.WriteString(run.Text)
		}
		if text := sb.String(); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	text := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
