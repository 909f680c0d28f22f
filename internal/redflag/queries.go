package redflag

import (
	"fmt"

	"github.com/complium/adgmreview/internal/doctype"
)

// queryPlan returns the ordered retrieval queries for one document type:
// the four base checks (general, jurisdiction, execution, mandatory
// content) followed by type-specific follow-ups. The shared run budget
// caps how many of these actually execute.
func queryPlan(t doctype.DocumentType) []string {
	queries := []string{
		fmt.Sprintf("What are the complete ADGM compliance requirements for %s?", t),
		fmt.Sprintf("What court jurisdiction requirements apply to ADGM %s?", t),
		fmt.Sprintf("What are the signature and execution requirements for ADGM %s?", t),
		fmt.Sprintf("What mandatory clauses must be included in ADGM %s?", t),
	}
	return append(queries, followUps(t)...)
}

func followUps(t doctype.DocumentType) []string {
	switch t {
	case doctype.ArticlesOfAssociation:
		return []string{
			"What jurisdiction and governing law clauses are required in ADGM Articles?",
			"What director powers and shareholder rights must be specified in ADGM Articles?",
		}
	case doctype.MemorandumOfAssociation:
		return []string{
			"What objects and powers clauses are mandatory in ADGM Memorandum?",
			"What share capital information must be included in ADGM Memorandum?",
		}
	case doctype.BoardResolution:
		return []string{
			"What director appointment procedures are required in ADGM?",
			"What authorization requirements apply to ADGM board resolutions?",
		}
	case doctype.RegisterOfMembers, doctype.RegisterOfDirectors:
		return []string{
			"What beneficial ownership disclosure requirements apply to ADGM registers?",
			"What updating and maintenance requirements apply to ADGM registers?",
		}
	case doctype.IncorporationApplication:
		return []string{
			"What mandatory sections and declarations are required in an ADGM incorporation application?",
			"What registered office requirements apply to ADGM incorporation?",
		}
	default:
		return nil
	}
}

// QueryBudget is the counting guard shared across all per-document query
// issuance. The cap is global for the run, not per document.
type QueryBudget struct {
	limit int
	used  int
}

// NewQueryBudget returns a budget allowing up to limit queries.
func NewQueryBudget(limit int) *QueryBudget {
	return &QueryBudget{limit: limit}
}

// TryAcquire consumes one query slot, reporting false once the budget is
// exhausted.
func (b *QueryBudget) TryAcquire() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// Used returns how many slots have been consumed.
func (b *QueryBudget) Used() int {
	return b.used
}
