// Package engine invokes the external analysis engine as a monitored
// subprocess and returns validated structured findings.
//
// Two invocation modes exist. Bounded mode runs the engine once with a hard
// wall-clock timeout and a capped output buffer, retrying exactly once on
// non-timeout failures. Streaming mode runs longer multi-turn sessions with
// live stderr forwarding and a manually armed kill timer, and never retries;
// callers wanting resilience fall back to bounded mode themselves.
//
// Both modes spawn with a filtered environment and share one envelope
// parsing and schema validation path.
package engine

import (
	"context"
	"io"
	"time"

	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/logging"
	"github.com/dfarrell/patchreview/internal/redaction"
)

// Default budgets. Bounded mode is sized for one-shot review calls;
// streaming mode for exploratory multi-turn sessions.
const (
	DefaultBoundedTimeout  = 5 * time.Minute
	DefaultStreamTimeout   = 10 * time.Minute
	DefaultBoundedMaxTurns = 16
	DefaultStreamMaxTurns  = 60
	DefaultMaxOutputBytes  = 8 << 20
	DefaultBinary          = "claude"
)

// Options configures the analyzer.
type Options struct {
	// Binary is the engine executable. Defaults to DefaultBinary.
	Binary string

	// Model is the engine identity to request. Empty uses the engine's
	// own default.
	Model string

	// BoundedTimeout and StreamTimeout are the per-mode wall clocks.
	BoundedTimeout time.Duration
	StreamTimeout  time.Duration

	// BoundedMaxTurns and StreamMaxTurns cap the engine's internal
	// turn budget per mode.
	BoundedMaxTurns int
	StreamMaxTurns  int

	// MaxOutputBytes caps bounded-mode stdout accumulation.
	MaxOutputBytes int

	// ExtraAllowedEnv names environment variables that survive filtering
	// in addition to the built-in allow list.
	ExtraAllowedEnv []string
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.BoundedTimeout <= 0 {
		o.BoundedTimeout = DefaultBoundedTimeout
	}
	if o.StreamTimeout <= 0 {
		o.StreamTimeout = DefaultStreamTimeout
	}
	if o.BoundedMaxTurns <= 0 {
		o.BoundedMaxTurns = DefaultBoundedMaxTurns
	}
	if o.StreamMaxTurns <= 0 {
		o.StreamMaxTurns = DefaultStreamMaxTurns
	}
	if o.MaxOutputBytes <= 0 {
		o.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return o
}

// Request is one analysis call.
type Request struct {
	// Prompt is the full prompt payload, diff included.
	Prompt string

	// Model overrides Options.Model for this call.
	Model string

	// Streaming selects the long-running multi-turn mode.
	Streaming bool
}

// Analyzer orchestrates engine subprocess invocations.
type Analyzer struct {
	opts     Options
	logger   logging.Logger
	scrubber *redaction.Scrubber
	registry *ProcessRegistry

	// stderrSink receives scrubbed live stderr in streaming mode.
	// Defaults to io.Discard; the pipeline points it at the console
	// when one is attached.
	stderrSink io.Writer

	// runner indirection for tests; production uses execRunner.
	run commandRunner
}

// NewAnalyzer constructs an Analyzer. logger and registry may be nil.
func NewAnalyzer(opts Options, logger logging.Logger, scrubber *redaction.Scrubber, registry *ProcessRegistry) *Analyzer {
	if logger == nil {
		logger = logging.Nop{}
	}
	if scrubber == nil {
		scrubber = redaction.NewScrubber()
	}
	return &Analyzer{
		opts:       opts.withDefaults(),
		logger:     logger,
		scrubber:   scrubber,
		registry:   registry,
		stderrSink: io.Discard,
		run:        execRunner{},
	}
}

// ForwardStderrTo directs scrubbed streaming-mode stderr to w.
func (a *Analyzer) ForwardStderrTo(w io.Writer) {
	if w != nil {
		a.stderrSink = w
	}
}

// Analyze invokes the engine and returns validated findings or a typed
// *Error. Bounded mode retries exactly once on non-timeout failures; a
// timed-out request is likely oversized and is never retried. Streaming
// mode never retries and never substitutes empty results.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*domain.AnalysisResult, error) {
	model := req.Model
	if model == "" {
		model = a.opts.Model
	}

	if req.Streaming {
		return a.runStreaming(ctx, req.Prompt, model)
	}

	start := time.Now()
	result, err := a.runBounded(ctx, req.Prompt, model)
	if err != nil && !IsTimeout(err) && ctx.Err() == nil {
		a.logger.Warn("bounded engine call failed, retrying once", map[string]interface{}{
			"error": err.Error(),
		})
		result, err = a.runBounded(ctx, req.Prompt, model)
	}
	if err != nil {
		a.logger.Error("engine call failed", map[string]interface{}{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	a.logger.Info("engine call finished", map[string]interface{}{
		"model":       result.EngineModel,
		"findings":    len(result.Findings),
		"turns":       result.Meta.TurnCount,
		"cost_usd":    result.Meta.CostUSD,
		"duration_ms": result.Meta.DurationMS,
	})
	return result, nil
}
