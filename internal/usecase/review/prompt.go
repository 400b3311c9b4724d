package review

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/dfarrell/patchreview/internal/domain"
)

// Strictness levels for the review posture.
const (
	StrictnessStrict  = "strict"
	StrictnessNormal  = "normal"
	StrictnessLenient = "lenient"
)

// DefaultMaxDiffChars bounds the diff portion of the prompt.
const DefaultMaxDiffChars = 200000

// PromptBuilder renders review prompts from a template.
type PromptBuilder struct {
	tmpl         *template.Template
	strictness   string
	instructions string
	maxDiffChars int
}

// NewPromptBuilder returns a builder for the given strictness. Unknown or
// empty strictness falls back to normal.
func NewPromptBuilder(strictness, instructions string, maxDiffChars int) *PromptBuilder {
	switch strictness {
	case StrictnessStrict, StrictnessNormal, StrictnessLenient:
	default:
		strictness = StrictnessNormal
	}
	if maxDiffChars <= 0 {
		maxDiffChars = DefaultMaxDiffChars
	}
	return &PromptBuilder{
		tmpl:         template.Must(template.New("review").Parse(promptTemplate)),
		strictness:   strictness,
		instructions: instructions,
		maxDiffChars: maxDiffChars,
	}
}

type promptData struct {
	Title        string
	Body         string
	BaseBranch   string
	HeadBranch   string
	Posture      string
	Instructions string
	Truncated    bool
	Diff         string
}

// Build renders the prompt for a change. The second return reports whether
// the diff was truncated to fit the budget.
func (b *PromptBuilder) Build(change domain.Change) (string, bool) {
	diffText, truncated := TruncateDiff(change.DiffText, b.maxDiffChars)

	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, promptData{
		Title:        change.Title,
		Body:         change.Body,
		BaseBranch:   change.BaseBranch,
		HeadBranch:   change.HeadBranch,
		Posture:      postures[b.strictness],
		Instructions: b.instructions,
		Truncated:    truncated,
		Diff:         diffText,
	})
	if err != nil {
		// The template is compile-time constant; execution over plain
		// strings cannot fail.
		panic(fmt.Sprintf("render review prompt: %v", err))
	}
	return buf.String(), truncated
}

var postures = map[string]string{
	StrictnessStrict:  "Report every defect you find, including style and consistency issues. Prefer false positives over missed bugs.",
	StrictnessNormal:  "Report defects that a careful human reviewer would flag. Skip pure style preferences.",
	StrictnessLenient: "Report only clear bugs and security problems you are confident about. When in doubt, stay silent.",
}

const promptTemplate = `You are reviewing a code change.

Title: {{.Title}}
{{- if .Body}}
Description:
{{.Body}}
{{- end}}
Branches: {{.HeadBranch}} -> {{.BaseBranch}}

{{.Posture}}
{{- if .Instructions}}

Additional instructions:
{{.Instructions}}
{{- end}}

Line numbers in your findings must refer to the NEW file version, exactly as
counted from the hunk headers below. Only report lines that exist.

Respond with a single JSON object and nothing else:
{
  "findings": [
    {
      "file": "path/to/file.go",
      "line": 42,
      "endLine": 45,
      "severity": "bug|security|suggestion|nitpick",
      "confidence": "high|medium|low",
      "category": "short category",
      "description": "what is wrong and why it matters",
      "suggestedFix": "optional concrete fix",
      "relatedLocations": [{"file": "other.go", "line": 7, "reason": "context"}]
    }
  ]
}

An empty findings array is a valid response for a clean change.
{{- if .Truncated}}

Note: the diff below was truncated; some files are omitted entirely.
{{- end}}

The diff:

{{.Diff}}
`

// fileBoundary marks the start of each file section in a unified diff.
const fileBoundary = "diff --git "

// TruncateDiff cuts an oversized diff at the last complete file boundary
// that fits within maxChars, so the engine never sees a half-rendered file.
// A diff whose first file alone exceeds the budget is cut to nothing rather
// than mid-hunk.
func TruncateDiff(diffText string, maxChars int) (string, bool) {
	if len(diffText) <= maxChars {
		return diffText, false
	}

	cut := 0
	for {
		next := strings.Index(diffText[cut:], "\n"+fileBoundary)
		if next < 0 {
			break
		}
		boundary := cut + next + 1
		if boundary > maxChars {
			break
		}
		cut = boundary
	}
	// cut now points at the start of the first file that does not fit.
	if cut == 0 && strings.HasPrefix(diffText, fileBoundary) {
		return "", true
	}
	return diffText[:cut], true
}
