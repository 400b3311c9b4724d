// Package review wires the full pipeline: fetch the change, prompt the
// engine, place the findings against the diff, then publish and persist
// the result.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/dfarrell/patchreview/internal/diff"
	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/logging"
	"github.com/dfarrell/patchreview/internal/placement"
)

// ChangeSource fetches the change under review, including its unified diff.
type ChangeSource interface {
	Fetch(ctx context.Context) (domain.Change, error)
}

// Analyzer runs the engine over a review prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (domain.AnalysisResult, error)
}

// Poster publishes the review to the code host.
type Poster interface {
	Post(ctx context.Context, req PostRequest) (PostResult, error)
}

// InlineComment is one annotation anchored to a new-file line of the diff.
type InlineComment struct {
	Path string
	Line int
	Body string
}

// PostRequest carries everything the poster needs.
type PostRequest struct {
	Body     string
	Comments []InlineComment
}

// PostResult reports what was actually published.
type PostResult struct {
	ReviewURL string
	// InlinePosted is the number of comments that landed inline. When the
	// host rejected inline placement, this is zero and the comments were
	// folded into the body instead.
	InlinePosted int
	BulkPromoted bool
}

// ArtifactWriter persists the rendered review to disk.
type ArtifactWriter interface {
	Write(ctx context.Context, artifact Artifact) (string, error)
}

// Artifact is the on-disk review record.
type Artifact struct {
	Change   domain.Change
	Findings []domain.Finding
	Body     string
	Meta     domain.OperationalMeta
	Model    string
}

// Store persists run history for later evaluation.
type Store interface {
	CreateRun(ctx context.Context, run StoreRun) (int64, error)
	SaveFindings(ctx context.Context, runID int64, findings []domain.Finding) error
	Close() error
}

// StoreRun is one recorded pipeline execution.
type StoreRun struct {
	StartedAt   time.Time
	Title       string
	BaseBranch  string
	HeadBranch  string
	Model       string
	CostUSD     float64
	DurationMS  int64
	TurnCount   int
	NumFindings int
}

// Orchestrator executes the review pipeline end to end.
type Orchestrator struct {
	source   ChangeSource
	analyzer Analyzer
	prompts  *PromptBuilder
	poster   Poster // nil disables posting
	writer   ArtifactWriter
	store    Store // nil disables persistence
	logger   logging.Logger
}

// NewOrchestrator assembles the pipeline. Poster and store may be nil.
func NewOrchestrator(source ChangeSource, analyzer Analyzer, prompts *PromptBuilder, poster Poster, writer ArtifactWriter, store Store, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Orchestrator{
		source:   source,
		analyzer: analyzer,
		prompts:  prompts,
		poster:   poster,
		writer:   writer,
		store:    store,
		logger:   logger,
	}
}

// Result summarizes one pipeline execution.
type Result struct {
	Findings     []domain.Finding
	Inline       []domain.Finding
	OffDiff      []domain.Finding
	Body         string
	Meta         domain.OperationalMeta
	Model        string
	ReviewURL    string
	ArtifactPath string
	BulkPromoted bool
}

// Execute runs fetch, analyze, placement, publish, and persist in order.
// Posting and persistence failures after a successful analysis are returned
// as errors but never discard the findings already computed.
func (o *Orchestrator) Execute(ctx context.Context) (Result, error) {
	start := time.Now()

	change, err := o.source.Fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch change: %w", err)
	}
	o.logger.Info("change fetched", map[string]interface{}{
		"title": change.Title,
		"files": change.ChangedFiles,
	})

	prompt, truncated := o.prompts.Build(change)
	if truncated {
		o.logger.Warn("diff truncated to fit prompt budget", map[string]interface{}{
			"maxChars": o.prompts.maxDiffChars,
		})
	}

	analysis, err := o.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("analyze change: %w", err)
	}

	hunks := diff.ParseHunks(change.DiffText)
	inline, offDiff := placement.Partition(analysis.Findings, hunks)
	o.logger.Info("findings placed", map[string]interface{}{
		"total":   len(analysis.Findings),
		"inline":  len(inline),
		"offDiff": len(offDiff),
		"model":   analysis.EngineModel,
	})

	result := Result{
		Findings: analysis.Findings,
		Inline:   inline,
		OffDiff:  offDiff,
		Meta:     analysis.Meta,
		Model:    analysis.EngineModel,
	}
	result.Body = reviewBody(inline, offDiff, analysis)

	if o.poster != nil {
		posted, err := o.poster.Post(ctx, PostRequest{
			Body:     result.Body,
			Comments: inlineComments(inline),
		})
		if err != nil {
			return result, fmt.Errorf("post review: %w", err)
		}
		result.ReviewURL = posted.ReviewURL
		result.BulkPromoted = posted.BulkPromoted
		if posted.BulkPromoted {
			o.logger.Warn("inline comments rejected, promoted to summary body", map[string]interface{}{
				"comments": len(inline),
			})
		}
	}

	if o.writer != nil {
		path, err := o.writer.Write(ctx, Artifact{
			Change:   change,
			Findings: analysis.Findings,
			Body:     result.Body,
			Meta:     analysis.Meta,
			Model:    analysis.EngineModel,
		})
		if err != nil {
			return result, fmt.Errorf("write artifact: %w", err)
		}
		result.ArtifactPath = path
	}

	if o.store != nil {
		runID, err := o.store.CreateRun(ctx, StoreRun{
			StartedAt:   start,
			Title:       change.Title,
			BaseBranch:  change.BaseBranch,
			HeadBranch:  change.HeadBranch,
			Model:       analysis.EngineModel,
			CostUSD:     analysis.Meta.CostUSD,
			DurationMS:  analysis.Meta.DurationMS,
			TurnCount:   analysis.Meta.TurnCount,
			NumFindings: len(analysis.Findings),
		})
		if err != nil {
			return result, fmt.Errorf("record run: %w", err)
		}
		if err := o.store.SaveFindings(ctx, runID, analysis.Findings); err != nil {
			return result, fmt.Errorf("record findings: %w", err)
		}
	}

	return result, nil
}

// reviewBody assembles the aggregate summary: the severity count line,
// the off-diff section when present, and the run footer.
func reviewBody(inline, offDiff []domain.Finding, analysis domain.AnalysisResult) string {
	all := make([]domain.Finding, 0, len(inline)+len(offDiff))
	all = append(all, inline...)
	all = append(all, offDiff...)

	body := "## Automated review\n\n" + placement.SeverityCountLine(all) + "\n"
	if section := placement.OffDiffSummary(offDiff); section != "" {
		body += "\n" + section
	}
	body += fmt.Sprintf("\n---\n_model: %s, turns: %d, duration: %dms, cost: $%.4f_\n",
		analysis.EngineModel, analysis.Meta.TurnCount, analysis.Meta.DurationMS, analysis.Meta.CostUSD)
	return body
}

func inlineComments(inline []domain.Finding) []InlineComment {
	comments := make([]InlineComment, 0, len(inline))
	for _, f := range inline {
		comments = append(comments, InlineComment{
			Path: f.File,
			Line: f.Line,
			Body: commentBody(f),
		})
	}
	return comments
}

func commentBody(f domain.Finding) string {
	body := fmt.Sprintf("**%s** (%s, %s confidence): %s", f.Severity, f.Category, f.Confidence, f.Description)
	if f.SuggestedFix != "" {
		body += "\n\nSuggested fix: " + f.SuggestedFix
	}
	for _, loc := range f.RelatedLocations {
		body += fmt.Sprintf("\n\nRelated: `%s:%d` %s", loc.File, loc.Line, loc.Reason)
	}
	return body
}
