package engine

import (
	"context"
	"strconv"

	"github.com/dfarrell/patchreview/internal/domain"
)

// runBounded performs one single-shot engine invocation under the hard
// bounded-mode timeout. Retry policy lives in Analyze, not here.
func (a *Analyzer) runBounded(ctx context.Context, prompt, model string) (*domain.AnalysisResult, error) {
	args := []string{"-p", "--output-format", "json",
		"--max-turns", strconv.Itoa(a.opts.BoundedMaxTurns)}
	if model != "" {
		args = append(args, "--model", model)
	}

	a.logger.Debug("spawning engine (bounded)", map[string]interface{}{
		"binary":       a.opts.Binary,
		"model":        model,
		"prompt_chars": len(prompt),
		"timeout":      a.opts.BoundedTimeout.String(),
	})

	res, err := a.run.run(ctx, invocation{
		binary:         a.opts.Binary,
		args:           args,
		stdin:          prompt,
		env:            a.filteredEnv(),
		timeout:        a.opts.BoundedTimeout,
		maxOutputBytes: a.opts.MaxOutputBytes,
		registry:       a.registry,
	})
	if err != nil {
		return nil, newProcessError(-1, "failed to spawn engine: "+err.Error())
	}
	if res.timedOut {
		return nil, newTimeoutError("bounded", a.opts.BoundedTimeout.String())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if res.exitCode != 0 {
		return nil, newProcessError(res.exitCode,
			a.scrubber.Scrub(lastStderrLine(res.stderr)))
	}

	env, err := parseEnvelope(res.stdout)
	if err != nil {
		return nil, err
	}
	return decodeResult(env, model)
}

// lastStderrLine extracts the most informative tail of captured stderr for
// error messages.
func lastStderrLine(stderr string) string {
	trimmed := []byte(stderr)
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	s := string(trimmed)
	if s == "" {
		return "engine exited abnormally with no stderr output"
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
