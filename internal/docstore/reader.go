// Package docstore reads word-processor documents from a directory and
// extracts their plain text. Files that fail to parse are reported with a
// per-file error status; the batch only fails as a whole when the directory
// is missing or contains no supported files.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNoDocuments is returned when the documents directory exists but
// contains no supported files.
var ErrNoDocuments = errors.New("no supported document files found")

// Document is one file read from the store. Immutable once read.
type Document struct {
	Filename   string
	Paragraphs []string
	Content    string
	WordCount  int
	Status     string // "success" or "error"
	Error      string
}

// Valid reports whether the document was read successfully.
func (d Document) Valid() bool {
	return d.Status == "success"
}

// Reader enumerates and extracts .docx documents from a single directory.
type Reader struct {
	logger *zap.Logger
}

// NewReader returns a Reader. A nil logger is replaced with a no-op logger.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadDir reads every .docx file in dir. Unreadable files produce a
// Document with error status rather than aborting the batch. Returns an
// error only when the directory is absent or holds no .docx files.
func (r *Reader) ReadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".docx") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoDocuments, dir)
	}

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		doc := r.readOne(filepath.Join(dir, name), name)
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Reader) readOne(path, name string) Document {
	paragraphs, err := extractParagraphs(path)
	if err != nil {
		r.logger.Warn("document read failed",
			zap.String("filename", name),
			zap.Error(err))
		return Document{
			Filename: name,
			Status:   "error",
			Error:    fmt.Sprintf("reading %s: %v", name, err),
		}
	}

	content := strings.Join(paragraphs, "\n")
	doc := Document{
		Filename:   name,
		Paragraphs: paragraphs,
		Content:    content,
		WordCount:  len(strings.Fields(content)),
		Status:     "success",
	}
	r.logger.Info("document read",
		zap.String("filename", name),
		zap.Int("paragraphs", len(paragraphs)),
		zap.Int("words", doc.WordCount))
	return doc
}

// Excerpt returns the first n non-empty paragraphs joined by a space,
// used as the bounded text sample for classification.
func (d Document) Excerpt(n int) string {
	if n <= 0 || n >= len(d.Paragraphs) {
		return strings.Join(d.Paragraphs, " ")
	}
	return strings.Join(d.Paragraphs[:n], " ")
}
