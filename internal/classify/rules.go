package classify

import (
	"strings"

	"github.com/complium/adgmreview/internal/doctype"
)

// rule is a pure predicate over the lowercased filename and content excerpt.
// Returns the matched type and true on a hit. Rules are evaluated in order
// and the first hit wins; the LLM fallback runs only when every rule misses.
type rule func(filename, content string) (doctype.DocumentType, bool)

// filenameRules are the first classification layer: fixed substring checks
// against the filename. The register rule resolves director before member.
var filenameRules = []rule{
	func(name, _ string) (doctype.DocumentType, bool) {
		if strings.Contains(name, "aoa") || strings.Contains(name, "articles") {
			return doctype.ArticlesOfAssociation, true
		}
		return "", false
	},
	func(name, _ string) (doctype.DocumentType, bool) {
		if strings.Contains(name, "moa") || strings.Contains(name, "memorandum") {
			return doctype.MemorandumOfAssociation, true
		}
		return "", false
	},
	func(name, _ string) (doctype.DocumentType, bool) {
		if strings.Contains(name, "resolution") {
			return doctype.BoardResolution, true
		}
		return "", false
	},
	func(name, _ string) (doctype.DocumentType, bool) {
		if !strings.Contains(name, "register") {
			return "", false
		}
		if strings.Contains(name, "director") {
			return doctype.RegisterOfDirectors, true
		}
		if strings.Contains(name, "member") {
			return doctype.RegisterOfMembers, true
		}
		return "", false
	},
	func(name, _ string) (doctype.DocumentType, bool) {
		if strings.Contains(name, "incorporation") || strings.Contains(name, "application") {
			return doctype.IncorporationApplication, true
		}
		return "", false
	},
}

// contentPattern pairs a document type with its keyword set for the second
// classification layer. Order is fixed so content matching is deterministic.
type contentPattern struct {
	docType  doctype.DocumentType
	keywords []string
}

var contentPatterns = []contentPattern{
	{doctype.ArticlesOfAssociation, []string{"articles of association", "company governance", "director powers", "articles", "aoa"}},
	{doctype.MemorandumOfAssociation, []string{"memorandum of association", "company objects", "share capital", "memorandum", "moa"}},
	{doctype.BoardResolution, []string{"resolution", "resolved", "board of directors", "board resolution"}},
	{doctype.RegisterOfDirectors, []string{"register of directors", "director details", "director information"}},
	{doctype.RegisterOfMembers, []string{"register of members", "shareholder", "member information"}},
	{doctype.IncorporationApplication, []string{"incorporation application", "application for", "registration authority"}},
}

// contentRule is the second layer: keyword sets matched against the extracted
// text excerpt when no filename rule fired.
func contentRule(_, content string) (doctype.DocumentType, bool) {
	for _, cp := range contentPatterns {
		for _, kw := range cp.keywords {
			if strings.Contains(content, kw) {
				return cp.docType, true
			}
		}
	}
	return "", false
}

// matchRules runs both deterministic layers over the lowercased inputs.
func matchRules(filename, content string) (doctype.DocumentType, bool) {
	name := strings.ToLower(filename)
	text := strings.ToLower(content)
	for _, r := range filenameRules {
		if t, ok := r(name, text); ok {
			return t, true
		}
	}
	return contentRule(name, text)
}
