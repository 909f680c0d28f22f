package doctype

import "testing"

func TestSeverityOrdinal_Ordering(t *testing.T) {
	if !(SeverityOrdinal(SeverityLow) < SeverityOrdinal(SeverityMedium) &&
		SeverityOrdinal(SeverityMedium) < SeverityOrdinal(SeverityHigh) &&
		SeverityOrdinal(SeverityHigh) < SeverityOrdinal(SeverityCritical)) {
		t.Error("severity ordinals are not strictly increasing LOW < MEDIUM < HIGH < CRITICAL")
	}
}

func TestSeverityOrdinal_Unrecognized(t *testing.T) {
	if got := SeverityOrdinal(Severity("SEVERE")); got != -1 {
		t.Errorf("SeverityOrdinal(SEVERE) = %d, want -1", got)
	}
}

func TestIsValidType_RequiredTypes(t *testing.T) {
	for _, dt := range Required() {
		if !IsValidType(dt) {
			t.Errorf("IsValidType(%q) = false, want true", dt)
		}
	}
}

func TestIsValidType_UnknownExcluded(t *testing.T) {
	if IsValidType(Unknown) {
		t.Error("IsValidType(Unknown) = true, want false")
	}
	if IsValidType(DocumentType("Shareholder Agreement")) {
		t.Error("IsValidType accepted a type outside the closed set")
	}
}

func TestRequired_HasSixTypes(t *testing.T) {
	if got := len(Required()); got != 6 {
		t.Errorf("len(Required()) = %d, want 6", got)
	}
}
