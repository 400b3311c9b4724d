// Package placement classifies engine findings against the diff's
// coordinate space and builds the aggregate summary sections.
//
// A finding whose anchor line falls inside a rendered hunk range can be
// posted as an inline annotation; everything else, including findings on
// files absent from the diff or lines the engine invented, must be
// summarized separately so no feedback is silently dropped.
package placement

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dfarrell/patchreview/internal/diff"
	"github.com/dfarrell/patchreview/internal/domain"
)

// Partition splits findings into inline (anchor inside a hunk range) and
// off-diff sets. Iteration order is preserved and nothing is deduplicated:
// |inline| + |offDiff| == |findings| for every input.
func Partition(findings []domain.Finding, hunksByFile map[string][]diff.Hunk) (inline, offDiff []domain.Finding) {
	for _, f := range findings {
		if diff.InDiff(hunksByFile[f.File], f.Line) {
			inline = append(inline, f)
		} else {
			offDiff = append(offDiff, f)
		}
	}
	return inline, offDiff
}

var titleCaser = cases.Title(language.English)

// OffDiffSummary renders the off-diff findings as a markdown section.
// Returns "" when there is nothing to summarize; callers must not emit an
// empty section.
func OffDiffSummary(offDiff []domain.Finding) string {
	if len(offDiff) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("### Findings outside the diff\n\n")
	b.WriteString("These locations are not part of the rendered change and could not be annotated inline:\n\n")
	for _, f := range offDiff {
		fmt.Fprintf(&b, "- **%s** (%s, %s confidence) `%s:%d`: %s\n",
			titleCaser.String(f.Severity), f.Category, f.Confidence, f.File, f.Line, f.Description)
		if f.SuggestedFix != "" {
			fmt.Fprintf(&b, "  - Suggested fix: %s\n", f.SuggestedFix)
		}
	}
	return b.String()
}

// SeverityCountLine aggregates every finding, inline and off-diff alike,
// into a single severity-ordered readout for the top of the summary.
func SeverityCountLine(findings []domain.Finding) string {
	if len(findings) == 0 {
		return "No findings."
	}

	counts := make(map[string]int, len(domain.SeverityOrder))
	for _, f := range findings {
		counts[f.Severity]++
	}

	parts := make([]string, 0, len(domain.SeverityOrder))
	for _, severity := range domain.SeverityOrder {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, pluralize(severity, n)))
		}
	}
	noun := "findings"
	if len(findings) == 1 {
		noun = "finding"
	}
	return fmt.Sprintf("**%d %s**: %s", len(findings), noun, strings.Join(parts, ", "))
}

func pluralize(severity string, n int) string {
	if n == 1 {
		return severity
	}
	switch severity {
	case domain.SeverityBug:
		return "bugs"
	case domain.SeveritySuggestion:
		return "suggestions"
	case domain.SeverityNitpick:
		return "nitpicks"
	default:
		// "security" reads fine uncounted.
		return severity
	}
}
