// Package rewrite applies violation fixes to documents and produces the
// corrected output files plus the machine-readable edit ledger. Originals
// are never mutated; every change lands in a derived file under the output
// directory. Matching is best-effort: offending text absent from a document
// simply leaves that violation unfixed.
package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/complium/adgmreview/internal/docstore"
	"github.com/complium/adgmreview/internal/doctype"
)

// ReportFilename is the fixed master report path inside the output directory.
const ReportFilename = "compliance_edit_report.json"

// OutputPrefix is the derived-name convention for corrected documents.
const OutputPrefix = "CORRECTED_"

// truncateLimit bounds before/after text in the edit ledger.
const truncateLimit = 200

// AppliedReport pairs the edit report with the path it was persisted to.
type AppliedReport struct {
	Report     doctype.EditReport `json:"report"`
	ReportPath string             `json:"report_path"`
}

// colorBySeverity maps each severity to the annotation color recorded in
// the edit ledger.
var colorBySeverity = map[doctype.Severity]string{
	doctype.SeverityCritical: "#FF0000",
	doctype.SeverityHigh:     "#FF8C00",
	doctype.SeverityMedium:   "#B8860B",
	doctype.SeverityLow:      "#228B22",
}

// ColorFor returns the annotation color for a severity. Unknown severities
// fall back to the LOW color.
func ColorFor(s doctype.Severity) string {
	if c, ok := colorBySeverity[s]; ok {
		return c
	}
	return colorBySeverity[doctype.SeverityLow]
}

// Rewriter writes corrected documents and the edit ledger.
type Rewriter struct {
	outputDir     string
	perDocReports bool
	logger        *zap.Logger
	now           func() time.Time
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithPerDocumentReports also writes one JSON ledger per corrected document
// alongside the master report.
func WithPerDocumentReports() Option {
	return func(r *Rewriter) { r.perDocReports = true }
}

// withClock overrides the timestamp source. Used in tests.
func withClock(now func() time.Time) Option {
	return func(r *Rewriter) { r.now = now }
}

// NewRewriter returns a Rewriter targeting outputDir.
func NewRewriter(outputDir string, logger *zap.Logger, opts ...Option) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Rewriter{
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply processes every rewrite instruction and returns the aggregate edit
// report. Per-document save failures are recorded with error status and do
// not abort the remaining documents; the report covers everything that
// succeeded. The master report is serialized once, at the end.
func (r *Rewriter) Apply(docs []docstore.Document, instructions []doctype.RewriteInstruction) doctype.EditReport {
	byName := make(map[string]docstore.Document, len(docs))
	for _, d := range docs {
		byName[d.Filename] = d
	}

	report := doctype.EditReport{
		RunID:     uuid.NewString(),
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}

	for _, instr := range instructions {
		result := r.applyOne(byName, instr)
		report.Documents = append(report.Documents, result)

		report.TotalEdits += result.EditsMade
		report.CriticalFixes += result.SeverityCounts[doctype.SeverityCritical]
		report.HighFixes += result.SeverityCounts[doctype.SeverityHigh]
		report.MediumFixes += result.SeverityCounts[doctype.SeverityMedium]
		report.LowFixes += result.SeverityCounts[doctype.SeverityLow]
	}

	if err := r.writeMasterReport(report); err != nil {
		r.logger.Error("master edit report write failed", zap.Error(err))
	}
	return report
}

func (r *Rewriter) applyOne(byName map[string]docstore.Document, instr doctype.RewriteInstruction) doctype.DocumentEditResult {
	result := doctype.DocumentEditResult{
		Filename:       instr.Filename,
		Status:         doctype.StatusSuccess,
		SeverityCounts: map[doctype.Severity]int{},
	}

	doc, ok := byName[instr.Filename]
	if !ok || !doc.Valid() {
		result.Status = doctype.StatusError
		result.Error = fmt.Sprintf("document %q not available for rewriting", instr.Filename)
		return result
	}

	paragraphs := make([]string, len(doc.Paragraphs))
	copy(paragraphs, doc.Paragraphs)

	for _, v := range instr.Violations {
		applied := false
		for i, para := range paragraphs {
			if !strings.Contains(para, v.OffendingText) {
				continue
			}
			paragraphs[i] = strings.Replace(para, v.OffendingText, v.ReplacementText, 1)
			annotation := fmt.Sprintf("**[%s COMPLIANCE FIX]** %s (Citation: %s)", v.Severity, v.Comment, v.Citation)
			paragraphs = append(paragraphs[:i+1], append([]string{annotation}, paragraphs[i+1:]...)...)
			applied = true
			break
		}
		if !applied {
			// Best-effort match: the violation is simply not counted as fixed.
			r.logger.Debug("offending text not found",
				zap.String("filename", instr.Filename),
				zap.String("offending", truncate(v.OffendingText, 80)))
			continue
		}

		result.EditsMade++
		result.SeverityCounts[v.Severity]++
		result.FixedViolations = append(result.FixedViolations, doctype.FixedViolation{
			Severity: v.Severity,
			Color:    ColorFor(v.Severity),
			Before:   truncate(v.OffendingText, truncateLimit),
			After:    truncate(v.ReplacementText, truncateLimit),
			Comment:  v.Comment,
			Citation: v.Citation,
		})
	}

	banner := fmt.Sprintf("COMPLIANCE REVIEW: %d edit(s) applied on %s", result.EditsMade, r.now().UTC().Format(time.RFC3339))
	corrected := banner + "\n\n" + strings.Join(paragraphs, "\n\n") + "\n"

	result.Diff = generateDiff(doc.Content, strings.Join(paragraphs, "\n"))

	outputPath, err := r.save(instr.Filename, corrected)
	if err != nil {
		result.Status = doctype.StatusError
		result.Error = err.Error()
		return result
	}
	result.OutputPath = outputPath

	if r.perDocReports {
		if err := writeJSON(perDocReportPath(outputPath), result); err != nil {
			r.logger.Warn("per-document report write failed",
				zap.String("filename", instr.Filename),
				zap.Error(err))
		}
	}

	r.logger.Info("document rewritten",
		zap.String("filename", instr.Filename),
		zap.String("output", outputPath),
		zap.Int("edits", result.EditsMade))
	return result
}

// save writes the corrected document under the derived output name.
func (r *Rewriter) save(filename, content string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	outputPath := filepath.Join(r.outputDir, OutputPrefix+base+".txt")
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing corrected document: %w", err)
	}
	return outputPath, nil
}

func (r *Rewriter) writeMasterReport(report doctype.EditReport) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return writeJSON(filepath.Join(r.outputDir, ReportFilename), report)
}

func perDocReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_report.json"
}

// generateDiff renders the original-to-corrected change set in
// diff-match-patch text format for the ledger.
func generateDiff(original, corrected string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, corrected, false)
	patches := dmp.PatchMake(original, diffs)
	return dmp.PatchToText(patches)
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
