// Package doctype defines the closed document taxonomy and the record types
// exchanged between pipeline stages: classification results, violations,
// rewrite instructions, and the edit report.
package doctype

// DocumentType is the closed enumeration of ADGM incorporation document types.
type DocumentType string

const (
	ArticlesOfAssociation    DocumentType = "Articles of Association"
	MemorandumOfAssociation  DocumentType = "Memorandum of Association"
	BoardResolution          DocumentType = "Board Resolution"
	RegisterOfMembers        DocumentType = "Register of Members"
	RegisterOfDirectors      DocumentType = "Register of Directors"
	IncorporationApplication DocumentType = "Incorporation Application"
	Unknown                  DocumentType = "Unknown"
)

// Required is the fixed list of document types an incorporation submission
// must contain. Order matters for deterministic report output.
func Required() []DocumentType {
	return []DocumentType{
		ArticlesOfAssociation,
		MemorandumOfAssociation,
		BoardResolution,
		RegisterOfMembers,
		RegisterOfDirectors,
		IncorporationApplication,
	}
}

// IsValidType reports whether t is one of the six required document types.
// Unknown is deliberately excluded: it marks classification failure, not a type.
func IsValidType(t DocumentType) bool {
	switch t {
	case ArticlesOfAssociation,
		MemorandumOfAssociation,
		BoardResolution,
		RegisterOfMembers,
		RegisterOfDirectors,
		IncorporationApplication:
		return true
	}
	return false
}

// Severity grades a violation's compliance impact.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// SeverityOrdinal returns the numeric ordering for a severity:
// LOW(0) < MEDIUM(1) < HIGH(2) < CRITICAL(3). Returns -1 for an
// unrecognised severity.
func SeverityOrdinal(s Severity) int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// IsValidSeverity reports whether s is one of the four defined levels.
func IsValidSeverity(s Severity) bool {
	return SeverityOrdinal(s) >= 0
}

// Status values used on per-item records throughout the pipeline.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ClassificationResult is the per-document classification record.
type ClassificationResult struct {
	Filename     string       `json:"filename"`
	DocumentType DocumentType `json:"document_type"`
	Status       string       `json:"status"`
	Error        string       `json:"error,omitempty"`
}

// ClassificationReport aggregates classification results and the
// completeness check against the required set.
type ClassificationReport struct {
	ClassifiedDocuments []ClassificationResult `json:"classified_documents"`
	PresentDocuments    []DocumentType         `json:"present_documents"`
	MissingDocuments    []DocumentType         `json:"missing_documents"`
	CompletenessScore   float64                `json:"completeness_score"`
	IsComplete          bool                   `json:"is_complete"`
	TotalFilesProcessed int                    `json:"total_files_processed"`
}

// Violation is a single compliance defect found in a document. OffendingText
// is expected to be a literal substring of the source document; absence is
// tolerated downstream (the fix is skipped, not failed).
type Violation struct {
	DocumentFilename string   `json:"document_filename"`
	OffendingText    string   `json:"offending_text"`
	ReplacementText  string   `json:"replacement_text"`
	Comment          string   `json:"comment"`
	Severity         Severity `json:"severity"`
	Citation         string   `json:"citation"`
}

// RewriteInstruction carries the ordered violations to apply to one document.
type RewriteInstruction struct {
	Filename   string      `json:"filename"`
	Violations []Violation `json:"violations"`
}

// FixedViolation records one applied fix in the edit ledger. Before and
// after text are truncated for report readability.
type FixedViolation struct {
	Severity Severity `json:"severity"`
	Color    string   `json:"color"`
	Before   string   `json:"before"`
	After    string   `json:"after"`
	Comment  string   `json:"comment"`
	Citation string   `json:"citation"`
}

// DocumentEditResult is the per-document section of the edit report.
type DocumentEditResult struct {
	Filename        string           `json:"filename"`
	OutputPath      string           `json:"output_path,omitempty"`
	Status          string           `json:"status"`
	Error           string           `json:"error,omitempty"`
	EditsMade       int              `json:"edits_made"`
	SeverityCounts  map[Severity]int `json:"severity_counts"`
	FixedViolations []FixedViolation `json:"fixed_violations"`
	Diff            string           `json:"diff,omitempty"`
}

// EditReport is the aggregate, durable artifact of a rewriting run.
// Written once per run, never mutated after write.
type EditReport struct {
	RunID         string               `json:"run_id"`
	Timestamp     string               `json:"timestamp"`
	Documents     []DocumentEditResult `json:"documents"`
	TotalEdits    int                  `json:"total_edits"`
	CriticalFixes int                  `json:"critical_fixes"`
	HighFixes     int                  `json:"high_fixes"`
	MediumFixes   int                  `json:"medium_fixes"`
	LowFixes      int                  `json:"low_fixes"`
}
