// Package gate decides whether the compliance pipeline proceeds after
// classification. The policy is deliberately lenient: analysis continues
// on whatever valid documents exist, and only a fully empty submission
// stops the run.
package gate

import (
	"fmt"
	"strings"

	"github.com/complium/adgmreview/internal/doctype"
)

// Decision is the gate's CONTINUE/STOP outcome.
type Decision string

const (
	Continue Decision = "CONTINUE"
	Stop     Decision = "STOP"
)

// Result carries the completeness report and the flow-control decision.
type Result struct {
	Report   doctype.ClassificationReport `json:"report"`
	Decision Decision                     `json:"decision"`
	Reason   string                       `json:"reason"`
}

// Evaluate computes present/missing against the required set and the
// CONTINUE/STOP decision. Invariants: present and missing partition the
// required set exactly; the completeness score is |present|/|required|.
func Evaluate(results []doctype.ClassificationResult) Result {
	required := doctype.Required()

	detected := make(map[doctype.DocumentType]bool, len(required))
	for _, r := range results {
		if r.Status == doctype.StatusSuccess && doctype.IsValidType(r.DocumentType) {
			detected[r.DocumentType] = true
		}
	}

	present := make([]doctype.DocumentType, 0, len(required))
	missing := make([]doctype.DocumentType, 0, len(required))
	for _, t := range required {
		if detected[t] {
			present = append(present, t)
		} else {
			missing = append(missing, t)
		}
	}

	report := doctype.ClassificationReport{
		ClassifiedDocuments: results,
		PresentDocuments:    present,
		MissingDocuments:    missing,
		CompletenessScore:   float64(len(present)) / float64(len(required)),
		IsComplete:          len(missing) == 0,
		TotalFilesProcessed: len(results),
	}

	if len(present) == 0 {
		return Result{
			Report:   report,
			Decision: Stop,
			Reason:   "no required ADGM documents were identified; compliance analysis cannot proceed",
		}
	}

	reason := "all required documents present"
	if !report.IsComplete {
		reason = fmt.Sprintf("proceeding with %d of %d required documents; missing: %s",
			len(present), len(required), joinTypes(missing))
	}
	return Result{
		Report:   report,
		Decision: Continue,
		Reason:   reason,
	}
}

func joinTypes(types []doctype.DocumentType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
