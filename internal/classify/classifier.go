// Package classify maps documents to the closed ADGM document taxonomy.
// Classification runs three layers in strict priority order: filename
// keyword rules, content keyword rules, then a language-model fallback.
// The first two layers are deterministic and independent of any model;
// model output outside the fixed vocabulary collapses to Unknown.
package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/complium/adgmreview/internal/docstore"
	"github.com/complium/adgmreview/internal/doctype"
	"github.com/complium/adgmreview/internal/llm"
)

const (
	// excerptParagraphs bounds the text sample used for rule matching.
	excerptParagraphs = 10
	// llmContentLimit bounds the content excerpt sent to the model.
	llmContentLimit = 500
)

const classifierSystemPrompt = `You are an ADGM corporate document classifier. Analyze the filename and content to classify the document.

ADGM Document Types:
1. Articles of Association - Company governance, director powers, shareholder rights
2. Memorandum of Association - Company formation, objects, share capital, subscribers
3. Board Resolution - Director appointments, authorizations, corporate decisions
4. Register of Members - Shareholder information, share ownership
5. Register of Directors - Director details, appointments, addresses
6. Incorporation Application - ADGM registration application form

Respond with ONLY the document type name from the list above, or "Unknown" if it doesn't match any category.`

// extractionPatterns are tried in order against the model response until one
// yields a candidate label. The candidate is then validated against the
// closed type set.
var extractionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Final Classification:\s*(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)Classification:\s*(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)^(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)(Articles of Association|Memorandum of Association|Board Resolution|Register of Members|Register of Directors|Incorporation Application)`),
}

// Classifier assigns each document exactly one DocumentType.
type Classifier struct {
	provider llm.Provider
	logger   *zap.Logger
}

// New returns a Classifier. provider may be nil, in which case the fallback
// layer is skipped and rule misses resolve to Unknown. A nil logger is
// replaced with a no-op logger.
func New(provider llm.Provider, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{provider: provider, logger: logger}
}

// Classify returns the classification record for one document. Unreadable
// documents yield an error-status record; ambiguity is never an error and
// resolves to Unknown.
func (c *Classifier) Classify(ctx context.Context, doc docstore.Document) doctype.ClassificationResult {
	if !doc.Valid() {
		return doctype.ClassificationResult{
			Filename:     doc.Filename,
			DocumentType: doctype.Unknown,
			Status:       doctype.StatusError,
			Error:        doc.Error,
		}
	}

	excerpt := doc.Excerpt(excerptParagraphs)

	docType, matched := matchRules(doc.Filename, excerpt)
	if !matched {
		docType = c.fallback(ctx, doc.Filename, excerpt)
	}

	c.logger.Info("document classified",
		zap.String("filename", doc.Filename),
		zap.String("type", string(docType)),
		zap.Bool("rule_match", matched))

	return doctype.ClassificationResult{
		Filename:     doc.Filename,
		DocumentType: docType,
		Status:       doctype.StatusSuccess,
	}
}

// ClassifyAll classifies every document in order. Per-document failures do
// not abort the batch.
func (c *Classifier) ClassifyAll(ctx context.Context, docs []docstore.Document) []doctype.ClassificationResult {
	results := make([]doctype.ClassificationResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, c.Classify(ctx, doc))
	}
	return results
}

// fallback asks the language model to pick a label from the closed set.
// Any failure or out-of-vocabulary answer resolves to Unknown.
func (c *Classifier) fallback(ctx context.Context, filename, content string) doctype.DocumentType {
	if c.provider == nil {
		return doctype.Unknown
	}

	if len(content) > llmContentLimit {
		content = content[:llmContentLimit]
	}

	resp, err := c.provider.Complete(ctx, &llm.Request{
		SystemPrompt: classifierSystemPrompt,
		UserPrompt:   fmt.Sprintf("Filename: %s\nContent: %s", filename, content),
	})
	if err != nil {
		c.logger.Warn("classification fallback failed",
			zap.String("filename", filename),
			zap.Error(err))
		return doctype.Unknown
	}

	return parseLabel(resp.Content)
}

// parseLabel extracts a document type from a free-form model response.
// Each extraction pattern is tried in order; the first candidate that
// matches a valid type wins. Anything else is Unknown.
func parseLabel(response string) doctype.DocumentType {
	response = strings.TrimSpace(response)
	for _, pattern := range extractionPatterns {
		m := pattern.FindStringSubmatch(response)
		if m == nil {
			continue
		}
		candidate := strings.ToLower(strings.TrimSpace(m[1]))
		for _, valid := range doctype.Required() {
			if strings.Contains(candidate, strings.ToLower(string(valid))) {
				return valid
			}
		}
	}
	return doctype.Unknown
}
