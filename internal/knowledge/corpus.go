package knowledge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

// ErrEmptyCorpus is returned when the corpus directory yields no readable text.
var ErrEmptyCorpus = errors.New("no regulatory source documents found")

// SourceDocument is one regulatory source file's extracted text.
type SourceDocument struct {
	Source string // base filename, carried into chunk provenance
	Text   string
}

// LoadCorpus reads every PDF and plain-text file in dir. Files that fail to
// parse are logged and skipped; the load fails only when nothing at all
// could be read.
func LoadCorpus(dir string, logger *zap.Logger) ([]SourceDocument, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %q: %w", dir, err)
	}

	var docs []SourceDocument
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())

		var text string
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf":
			text, err = extractPDFText(path, logger)
		case ".txt", ".md":
			var data []byte
			data, err = os.ReadFile(path)
			text = string(data)
		default:
			continue
		}

		if err != nil {
			logger.Warn("corpus file skipped",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("corpus file has no extractable text", zap.String("file", e.Name()))
			continue
		}

		docs = append(docs, SourceDocument{Source: e.Name(), Text: text})
		logger.Info("corpus file loaded",
			zap.String("file", e.Name()),
			zap.Int("chars", len(text)))
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrEmptyCorpus, dir)
	}
	return docs, nil
}

// extractPDFText validates the PDF and extracts its plain text. pdfcpu
// handles validation and page counting; text extraction goes through
// ledongthuc/pdf, which exposes a plain-text reader.
func extractPDFText(path string, logger *zap.Logger) (string, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("validating pdf: %w", err)
	}
	logger.Debug("pdf validated",
		zap.String("file", filepath.Base(path)),
		zap.Int("pages", pageCount))

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return string(data), nil
}
