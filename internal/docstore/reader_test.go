package docstore

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeDocx assembles a minimal WordprocessingML archive with one paragraph
// per element of paragraphs.
func writeDocx(t *testing.T, path string, paragraphs ...string) {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	docXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte(docXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing docx file: %v", err)
	}
}

func TestReadDir_ExtractsParagraphsAndWordCount(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, filepath.Join(dir, "aoa.docx"),
		"Articles of Association",
		"The company shall be governed by ADGM law.")

	docs, err := NewReader(nil).ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}

	doc := docs[0]
	if !doc.Valid() {
		t.Fatalf("document not valid: %s", doc.Error)
	}
	if len(doc.Paragraphs) != 2 {
		t.Errorf("paragraphs = %d, want 2", len(doc.Paragraphs))
	}
	if doc.WordCount != 11 {
		t.Errorf("WordCount = %d, want 11", doc.WordCount)
	}
	if !strings.Contains(doc.Content, "ADGM law") {
		t.Errorf("content missing expected text: %q", doc.Content)
	}
}

func TestReadDir_MissingDirectoryFails(t *testing.T) {
	_, err := NewReader(nil).ReadDir(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestReadDir_NoDocxFilesFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewReader(nil).ReadDir(dir)
	if err == nil {
		t.Fatal("expected error when no .docx files exist")
	}
}

func TestReadDir_CorruptFileReportedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, filepath.Join(dir, "good.docx"), "Board Resolution")
	if err := os.WriteFile(filepath.Join(dir, "bad.docx"), []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := NewReader(nil).ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	var good, bad int
	for _, d := range docs {
		if d.Valid() {
			good++
		} else {
			bad++
			if d.Error == "" {
				t.Error("invalid document carries no error message")
			}
		}
	}
	if good != 1 || bad != 1 {
		t.Errorf("good=%d bad=%d, want 1 and 1", good, bad)
	}
}

func TestExcerpt_BoundsParagraphs(t *testing.T) {
	doc := Document{Paragraphs: []string{"one", "two", "three"}}
	if got := doc.Excerpt(2); got != "one two" {
		t.Errorf("Excerpt(2) = %q, want %q", got, "one two")
	}
	if got := doc.Excerpt(10); got != "one two three" {
		t.Errorf("Excerpt(10) = %q, want %q", got, "one two three")
	}
}
