package redflag

import "github.com/complium/adgmreview/internal/doctype"

// Violation categories the detection prompt is allowed to emit. Severity is
// assigned from this table, never free-form by the model.
const (
	CategoryJurisdiction        = "jurisdiction"
	CategoryRegisteredOffice    = "registered_office"
	CategorySignature           = "signature"
	CategoryBeneficialOwnership = "beneficial_ownership"
	CategoryDirectorAppointment = "director_appointment"
	CategoryConsistency         = "consistency"
	CategoryFormatting          = "formatting"
	CategoryOptionalClause      = "optional_clause"
	CategoryOther               = "other"
)

// severityByCategory is the fixed category-to-severity mapping.
var severityByCategory = map[string]doctype.Severity{
	CategoryJurisdiction:        doctype.SeverityCritical,
	CategoryRegisteredOffice:    doctype.SeverityCritical,
	CategorySignature:           doctype.SeverityCritical,
	CategoryBeneficialOwnership: doctype.SeverityHigh,
	CategoryDirectorAppointment: doctype.SeverityHigh,
	CategoryConsistency:         doctype.SeverityHigh,
	CategoryFormatting:          doctype.SeverityMedium,
	CategoryOptionalClause:      doctype.SeverityMedium,
}

// SeverityFor maps a violation category to its severity. Unrecognized
// categories default to LOW.
func SeverityFor(category string) doctype.Severity {
	if s, ok := severityByCategory[category]; ok {
		return s
	}
	return doctype.SeverityLow
}
