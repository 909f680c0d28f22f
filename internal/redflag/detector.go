// Package redflag analyzes classified documents for ADGM compliance
// violations. Each valid document gets a bounded sequence of knowledge-base
// queries; retrieved regulatory answers are combined with the document text
// to produce structured, citation-backed violations.
package redflag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/complium/adgmreview/internal/docstore"
	"github.com/complium/adgmreview/internal/doctype"
	"github.com/complium/adgmreview/internal/knowledge"
	"github.com/complium/adgmreview/internal/llm"
)

// DefaultQueryLimit caps retrieval queries across the whole run.
const DefaultQueryLimit = 10

// defaultMaxTokens bounds the analysis completion size.
const defaultMaxTokens = 4096

const analysisSystemPrompt = `You are a senior ADGM compliance analyzer. Given a corporate document and retrieved ADGM regulatory guidance, identify compliance violations.

For every violation provide:
- "offending_text": the exact literal text from the document that violates the requirement
- "replacement_text": suggested compliant wording
- "comment": why the change is necessary
- "category": one of jurisdiction, registered_office, signature, beneficial_ownership, director_appointment, consistency, formatting, optional_clause, other
- "citation": the specific ADGM regulation citation taken from the regulatory guidance

Rules:
- offending_text must be copied verbatim from the document
- every violation must cite a regulation from the provided guidance; omit violations you cannot cite
- return JSON only, matching: {"violations": [...]}. No prose, no markdown fences.`

// Retriever is the knowledge-base dependency, satisfied by
// *knowledge.Retriever and by fakes in tests.
type Retriever interface {
	Ask(ctx context.Context, query string) (knowledge.Answer, error)
}

// QueryIssue records a per-query soft failure: either a retrieval error or
// an insufficient-information answer. Neither aborts the run.
type QueryIssue struct {
	Query        string `json:"query"`
	Error        string `json:"error,omitempty"`
	Insufficient bool   `json:"insufficient,omitempty"`
}

// Findings is the detector's output for one run.
type Findings struct {
	StopReason    string                       `json:"stop_reason,omitempty"`
	QueriesIssued int                          `json:"queries_issued"`
	Instructions  []doctype.RewriteInstruction `json:"instructions"`
	QueryIssues   []QueryIssue                 `json:"query_issues,omitempty"`
}

// Detector runs the violation analysis over all valid documents.
type Detector struct {
	retriever Retriever
	provider  llm.Provider
	logger    *zap.Logger
	limit     int
	maxTokens int
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxTokens overrides the analysis completion token bound.
func WithMaxTokens(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxTokens = n
		}
	}
}

// NewDetector wires a detector. limit <= 0 selects DefaultQueryLimit.
func NewDetector(retriever Retriever, provider llm.Provider, limit int, logger *zap.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	d := &Detector{
		retriever: retriever,
		provider:  provider,
		logger:    logger,
		limit:     limit,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze runs the bounded retrieval plan and violation detection for every
// valid (successfully read, non-Unknown) document. With zero valid
// documents it stops with a reason and issues no queries at all.
func (d *Detector) Analyze(ctx context.Context, docs []docstore.Document, results []doctype.ClassificationResult) Findings {
	typeByFile := make(map[string]doctype.DocumentType, len(results))
	for _, r := range results {
		if r.Status == doctype.StatusSuccess && doctype.IsValidType(r.DocumentType) {
			typeByFile[r.Filename] = r.DocumentType
		}
	}

	var valid []docstore.Document
	for _, doc := range docs {
		if doc.Valid() {
			if _, ok := typeByFile[doc.Filename]; ok {
				valid = append(valid, doc)
			}
		}
	}

	if len(valid) == 0 {
		return Findings{
			StopReason: "no valid documents available for analysis; nothing to query",
		}
	}

	budget := NewQueryBudget(d.limit)
	findings := Findings{}

	for _, doc := range valid {
		docType := typeByFile[doc.Filename]
		answers, issues := d.gatherGuidance(ctx, docType, budget)
		findings.QueryIssues = append(findings.QueryIssues, issues...)

		violations := d.detect(ctx, doc, docType, answers)
		if len(violations) > 0 {
			findings.Instructions = append(findings.Instructions, doctype.RewriteInstruction{
				Filename:   doc.Filename,
				Violations: violations,
			})
		}
	}

	findings.QueriesIssued = budget.Used()
	return findings
}

// gatherGuidance runs the type's query plan under the shared budget.
// Failed or insufficient queries are recorded and skipped.
func (d *Detector) gatherGuidance(ctx context.Context, docType doctype.DocumentType, budget *QueryBudget) ([]knowledge.Answer, []QueryIssue) {
	var answers []knowledge.Answer
	var issues []QueryIssue

	for _, query := range queryPlan(docType) {
		if !budget.TryAcquire() {
			d.logger.Info("query budget exhausted",
				zap.String("document_type", string(docType)),
				zap.Int("limit", d.limit))
			break
		}

		ans, err := d.retriever.Ask(ctx, query)
		if err != nil {
			issues = append(issues, QueryIssue{Query: query, Error: err.Error()})
			continue
		}
		if ans.Insufficient() {
			issues = append(issues, QueryIssue{Query: query, Insufficient: true})
			continue
		}
		answers = append(answers, ans)
	}
	return answers, issues
}

// violationPayload mirrors the JSON the analysis prompt asks for.
type violationPayload struct {
	Violations []struct {
		OffendingText   string `json:"offending_text"`
		ReplacementText string `json:"replacement_text"`
		Comment         string `json:"comment"`
		Category        string `json:"category"`
		Citation        string `json:"citation"`
	} `json:"violations"`
}

// detect combines the document text with retrieved guidance and parses the
// model's structured violation list. Violations without a grounded citation
// are dropped. With no usable guidance there is nothing to cite, so no
// violations are emitted.
func (d *Detector) detect(ctx context.Context, doc docstore.Document, docType doctype.DocumentType, answers []knowledge.Answer) []doctype.Violation {
	if len(answers) == 0 {
		d.logger.Warn("no regulatory guidance retrieved; skipping detection",
			zap.String("filename", doc.Filename))
		return nil
	}

	var guidance strings.Builder
	for _, a := range answers {
		fmt.Fprintf(&guidance, "Q: %s\nA: %s\n\n", a.Query, a.Answer)
	}

	resp, err := d.provider.Complete(ctx, &llm.Request{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt: fmt.Sprintf("Document type: %s\nFilename: %s\n\nRegulatory guidance:\n%s\nDocument text:\n%s",
			docType, doc.Filename, guidance.String(), doc.Content),
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		d.logger.Warn("violation detection failed",
			zap.String("filename", doc.Filename),
			zap.Error(err))
		return nil
	}

	var payload violationPayload
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &payload); err != nil {
		d.logger.Warn("violation response parse failed",
			zap.String("filename", doc.Filename),
			zap.Error(err))
		return nil
	}

	var violations []doctype.Violation
	for _, v := range payload.Violations {
		if strings.TrimSpace(v.Citation) == "" {
			d.logger.Debug("dropping uncited violation", zap.String("filename", doc.Filename))
			continue
		}
		if strings.TrimSpace(v.OffendingText) == "" {
			continue
		}
		violations = append(violations, doctype.Violation{
			DocumentFilename: doc.Filename,
			OffendingText:    v.OffendingText,
			ReplacementText:  v.ReplacementText,
			Comment:          v.Comment,
			Severity:         SeverityFor(v.Category),
			Citation:         v.Citation,
		})
	}

	d.logger.Info("document analyzed",
		zap.String("filename", doc.Filename),
		zap.Int("violations", len(violations)))
	return violations
}

// stripFences removes leading/trailing markdown code fences from a model
// response (```json ... ``` or ``` ... ```).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "\n```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
