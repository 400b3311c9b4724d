package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dfarrell/patchreview/internal/domain"
)

// streamEvent is the minimal view of one newline-delimited streaming event;
// only the discriminator matters until the final result event is found.
type streamEvent struct {
	Type string `json:"type"`
}

// runStreaming performs a long-running multi-turn engine invocation.
// Timeout is enforced by an explicit kill timer, stderr is forwarded live
// through the scrubber, and stdout is accumulated silently. There is no
// retry and no fallback: the caller decides whether to degrade to bounded
// mode.
func (a *Analyzer) runStreaming(ctx context.Context, prompt, model string) (*domain.AnalysisResult, error) {
	args := []string{"-p", "--output-format", "stream-json", "--verbose",
		"--max-turns", strconv.Itoa(a.opts.StreamMaxTurns)}
	if model != "" {
		args = append(args, "--model", model)
	}

	a.logger.Debug("spawning engine (streaming)", map[string]interface{}{
		"binary":       a.opts.Binary,
		"model":        model,
		"prompt_chars": len(prompt),
		"timeout":      a.opts.StreamTimeout.String(),
	})

	stderr := a.scrubber.Writer(a.stderrSink)
	res, err := a.run.run(ctx, invocation{
		binary:         a.opts.Binary,
		args:           args,
		stdin:          prompt,
		env:            a.filteredEnv(),
		timeout:        a.opts.StreamTimeout,
		manualTimer:    true,
		stderr:         stderr,
		maxOutputBytes: a.opts.MaxOutputBytes * 4, // multi-turn transcripts run long
		registry:       a.registry,
	})
	_ = stderr.Close()
	if err != nil {
		return nil, newProcessError(-1, "failed to spawn engine: "+err.Error())
	}
	if res.timedOut {
		return nil, newTimeoutError("streaming", a.opts.StreamTimeout.String())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if res.exitCode != 0 {
		return nil, newProcessError(res.exitCode,
			a.scrubber.Scrub(lastStderrLine(res.stderr)))
	}

	env, err := lastResultEvent(res.stdout)
	if err != nil {
		return nil, err
	}
	return decodeResult(env, model)
}

// lastResultEvent scans newline-delimited JSON events and parses the last
// one of type "result" as the authoritative envelope. Accumulation order
// matches emission order, so a simple forward scan keeping the latest
// match is correct.
func lastResultEvent(stdout []byte) (*envelope, error) {
	var lastLine string
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// Interleaved non-JSON noise; the result event is what
			// matters.
			continue
		}
		if ev.Type == "result" {
			lastLine = line
		}
	}
	if lastLine == "" {
		return nil, newParseError("stream ended without a result event")
	}
	return parseEnvelope([]byte(lastLine))
}
