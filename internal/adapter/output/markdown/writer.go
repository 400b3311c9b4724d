// Package markdown renders the finished review into a Markdown file on
// disk, as a local record alongside whatever was posted upstream.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dfarrell/patchreview/internal/usecase/review"
)

type clock func() string

// Writer renders review artifacts into Markdown files.
type Writer struct {
	outputDir string
	now       clock
}

// NewWriter constructs a Markdown writer. The timestamp supplier feeds the
// filename, so tests can pin it.
func NewWriter(outputDir string, now clock) *Writer {
	return &Writer{outputDir: outputDir, now: now}
}

// Write persists the artifact and returns its path.
func (w *Writer) Write(ctx context.Context, artifact review.Artifact) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("review_%s_%s.md", sanitise(artifact.Change.HeadBranch), w.now())
	path := filepath.Join(w.outputDir, filename)

	if err := os.WriteFile(path, []byte(buildContent(artifact)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

func buildContent(artifact review.Artifact) string {
	var builder strings.Builder
	caser := cases.Title(language.English)

	builder.WriteString(fmt.Sprintf("# Review: %s\n\n", artifact.Change.Title))
	builder.WriteString(fmt.Sprintf("- Branches: %s -> %s\n", artifact.Change.HeadBranch, artifact.Change.BaseBranch))
	builder.WriteString(fmt.Sprintf("- Model: %s\n", artifact.Model))
	builder.WriteString(fmt.Sprintf("- Cost: $%.4f\n", artifact.Meta.CostUSD))
	builder.WriteString(fmt.Sprintf("- Duration: %dms over %d turns\n\n", artifact.Meta.DurationMS, artifact.Meta.TurnCount))

	builder.WriteString(artifact.Body)
	builder.WriteString("\n")

	if len(artifact.Findings) == 0 {
		return builder.String()
	}

	builder.WriteString("\n## Findings\n\n")
	for _, finding := range artifact.Findings {
		builder.WriteString(fmt.Sprintf("### %s: %s\n", caser.String(finding.Severity), finding.Description))
		if finding.EndLine > finding.Line {
			builder.WriteString(fmt.Sprintf("- File: %s:%d-%d\n", finding.File, finding.Line, finding.EndLine))
		} else {
			builder.WriteString(fmt.Sprintf("- File: %s:%d\n", finding.File, finding.Line))
		}
		builder.WriteString(fmt.Sprintf("- Category: %s\n", finding.Category))
		builder.WriteString(fmt.Sprintf("- Confidence: %s\n", finding.Confidence))
		if finding.SuggestedFix != "" {
			builder.WriteString(fmt.Sprintf("- Suggested fix: %s\n", finding.SuggestedFix))
		}
		for _, loc := range finding.RelatedLocations {
			builder.WriteString(fmt.Sprintf("- Related: %s:%d (%s)\n", loc.File, loc.Line, loc.Reason))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
