package domain

import "fmt"

// Severity levels a finding can carry, ordered from most to least serious.
const (
	SeverityBug        = "bug"
	SeveritySecurity   = "security"
	SeveritySuggestion = "suggestion"
	SeverityNitpick    = "nitpick"
)

// Confidence levels the engine attaches to a finding.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// SeverityOrder lists severities in display order. Iterating this slice
// instead of a map keeps severity readouts deterministic.
var SeverityOrder = []string{SeverityBug, SeveritySecurity, SeveritySuggestion, SeverityNitpick}

// RelatedLocation points at code elsewhere that a finding depends on.
type RelatedLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Finding is a single piece of review feedback anchored to a file and line.
// Findings are immutable after creation; the engine produces them and the
// placement and rendering layers only read them.
type Finding struct {
	File             string            `json:"file"`
	Line             int               `json:"line"`
	EndLine          int               `json:"endLine,omitempty"`
	Severity         string            `json:"severity"`
	Confidence       string            `json:"confidence"`
	Category         string            `json:"category"`
	Description      string            `json:"description"`
	SuggestedFix     string            `json:"suggestedFix,omitempty"`
	RelatedLocations []RelatedLocation `json:"relatedLocations,omitempty"`
}

// Validate checks the fields the coordinate-mapping layer depends on.
// A finding that fails validation must be rejected, not coerced: accepting
// a malformed line reference corrupts placement downstream.
func (f Finding) Validate() error {
	if f.File == "" {
		return fmt.Errorf("finding missing file")
	}
	if f.Line < 1 {
		return fmt.Errorf("finding %s: line must be >= 1, got %d", f.File, f.Line)
	}
	if !ValidSeverity(f.Severity) {
		return fmt.Errorf("finding %s:%d: unknown severity %q", f.File, f.Line, f.Severity)
	}
	if !ValidConfidence(f.Confidence) {
		return fmt.Errorf("finding %s:%d: unknown confidence %q", f.File, f.Line, f.Confidence)
	}
	if f.Description == "" {
		return fmt.Errorf("finding %s:%d: missing description", f.File, f.Line)
	}
	return nil
}

// ValidSeverity reports whether s is a recognized severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityBug, SeveritySecurity, SeveritySuggestion, SeverityNitpick:
		return true
	}
	return false
}

// ValidConfidence reports whether c is a recognized confidence level.
func ValidConfidence(c string) bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// OperationalMeta carries the engine's self-reported operational numbers.
// All fields are best-effort: missing values default to zero, never to an
// error, because incomplete metadata must not fail an otherwise good call.
type OperationalMeta struct {
	CostUSD    float64
	DurationMS int64
	TurnCount  int
	SessionID  string
}

// AnalysisResult is the validated output of one engine invocation.
type AnalysisResult struct {
	Findings    []Finding
	EngineModel string
	Meta        OperationalMeta
}

// Change is the minimal view of a code change under review, as supplied by
// a change-fetch collaborator (hosted PR or local git refs).
type Change struct {
	Title        string
	Body         string
	BaseBranch   string
	HeadBranch   string
	Additions    int
	Deletions    int
	ChangedFiles int
	Files        []string
	DiffText     string
}
