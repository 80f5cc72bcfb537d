package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	rpdf "rsc.io/pdf"

	"github.com/beingthebridges/grantpal/internal/errs"
)

// MaxTextChars is the hard character budget sent to the LLM. Text beyond it
// is cut at that offset, with no sentence-boundary awareness.
const MaxTextChars = 12000

// Truncate cuts s to at most MaxTextChars characters (runes).
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTextChars {
		return s
	}
	return string(runes[:MaxTextChars])
}

// TextFromFile produces a plain-text representation of an uploaded document,
// dispatching on the filename extension. Unknown formats are decoded as UTF-8
// text with invalid bytes dropped.
func TextFromFile(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return "", errs.Wrap(errs.KindExtraction, err, "failed to read PDF %s", filename)
		}
		return text, nil
	case ".docx":
		text, err := extractDOCXText(data)
		if err != nil {
			return "", errs.Wrap(errs.KindExtraction, err, "failed to read DOCX %s", filename)
		}
		return text, nil
	default:
		return strings.ToValidUTF8(string(data), ""), nil
	}
}

// extractPDFText concatenates per-page text with newlines. Pages that yield
// no extractable text contribute an empty string. The parser can panic on
// malformed files, so we recover and surface an error instead.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, reader.NumPage())
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		var builder strings.Builder
		for _, fragment := range page.Content().Text {
			if builder.Len() > 0 {
				builder.WriteString(" ")
			}
			builder.WriteString(fragment.S)
		}
		pages = append(pages, builder.String())
	}

	return strings.Join(pages, "\n"), nil
}

// extractDOCXText reads word/document.xml out of the zip container and joins
// paragraph text with newlines.
func extractDOCXText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open document.xml: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}
	defer doc.Close()

	decoder := xml.NewDecoder(doc)
	var paragraphs []string
	var current strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	return strings.Join(paragraphs, "\n"), nil
}
