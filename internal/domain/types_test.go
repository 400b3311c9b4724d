package domain_test

import (
	"testing"

	"github.com/dfarrell/patchreview/internal/domain"
)

func validFinding() domain.Finding {
	return domain.Finding{
		File:        "internal/server/server.go",
		Line:        42,
		Severity:    domain.SeverityBug,
		Confidence:  domain.ConfidenceHigh,
		Category:    "error-handling",
		Description: "error from Close is discarded",
	}
}

func TestFindingValidate(t *testing.T) {
	if err := validFinding().Validate(); err != nil {
		t.Fatalf("Validate() on valid finding: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*domain.Finding)
	}{
		{"missing file", func(f *domain.Finding) { f.File = "" }},
		{"zero line", func(f *domain.Finding) { f.Line = 0 }},
		{"negative line", func(f *domain.Finding) { f.Line = -3 }},
		{"bad severity", func(f *domain.Finding) { f.Severity = "critical" }},
		{"bad confidence", func(f *domain.Finding) { f.Confidence = "certain" }},
		{"missing description", func(f *domain.Finding) { f.Description = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFinding()
			tc.mutate(&f)
			if err := f.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestSeverityOrder(t *testing.T) {
	want := []string{"bug", "security", "suggestion", "nitpick"}
	if len(domain.SeverityOrder) != len(want) {
		t.Fatalf("SeverityOrder has %d entries, want %d", len(domain.SeverityOrder), len(want))
	}
	for i, s := range want {
		if domain.SeverityOrder[i] != s {
			t.Errorf("SeverityOrder[%d] = %q, want %q", i, domain.SeverityOrder[i], s)
		}
	}
	for _, s := range domain.SeverityOrder {
		if !domain.ValidSeverity(s) {
			t.Errorf("ValidSeverity(%q) = false", s)
		}
	}
}
