package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	short := "hello"
	if got := Truncate(short); got != short {
		t.Errorf("short input must be unchanged, got %q", got)
	}

	long := strings.Repeat("a", MaxTextChars+500)
	got := Truncate(long)
	if len([]rune(got)) != MaxTextChars {
		t.Errorf("expected hard cut at %d chars, got %d", MaxTextChars, len([]rune(got)))
	}

	// The budget is counted in runes, and the cut must not split one.
	wide := strings.Repeat("日", MaxTextChars+10)
	got = Truncate(wide)
	if len([]rune(got)) != MaxTextChars {
		t.Errorf("expected %d runes, got %d", MaxTextChars, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "日") {
		t.Error("cut split a multi-byte rune")
	}
}

func TestTextFromFilePlainTextLossyDecode(t *testing.T) {
	data := []byte("valid text \xff\xfe more text")
	text, err := TextFromFile("notes.txt", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "valid text  more text" {
		t.Errorf("invalid bytes should be dropped, got %q", text)
	}
}

func TestTextFromFileUnknownExtensionIsPlainText(t *testing.T) {
	text, err := TextFromFile("README", []byte("just bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "just bytes" {
		t.Errorf("got %q", text)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTextFromFileDocx(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := TextFromFile("proposal.docx", buildDocx(t, docXML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "First paragraph\nSecond paragraph" {
		t.Errorf("got %q", text)
	}
}

func TestTextFromFileDocxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("unrelated.xml")
	f.Write([]byte("<x/>"))
	w.Close()

	if _, err := TextFromFile("broken.docx", buf.Bytes()); err == nil {
		t.Fatal("expected error for docx without word/document.xml")
	}
}

func TestTextFromFileCorruptPDF(t *testing.T) {
	if _, err := TextFromFile("broken.pdf", []byte("definitely not a pdf")); err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
}

func TestHTMLToText(t *testing.T) {
	markup := `<html><head><title>x</title><script>evil()</script></head>
<body><h1>Grant Title</h1><p>Apply by <b>December</b> 2025.</p><style>.a{}</style></body></html>`

	text, err := HTMLToText(markup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(text, "evil") {
		t.Errorf("script content leaked into text: %q", text)
	}
	for _, want := range []string{"Grant Title", "December", "2025."} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
	if !strings.Contains(text, "\n") {
		t.Errorf("expected newline-joined lines, got %q", text)
	}
}
