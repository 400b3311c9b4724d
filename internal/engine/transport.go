package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// invocation describes one subprocess spawn.
type invocation struct {
	binary         string
	args           []string
	stdin          string
	env            []string
	timeout        time.Duration
	manualTimer    bool      // enforce timeout by killing, not via context
	stderr         io.Writer // nil: capture internally
	maxOutputBytes int
	registry       *ProcessRegistry
}

// invocationResult is the raw outcome of a spawn. Abnormal exits are data,
// not errors; only spawn failures surface as errors so the mode logic can
// apply its own taxonomy.
type invocationResult struct {
	stdout   []byte
	stderr   string
	exitCode int
	timedOut bool
}

// commandRunner abstracts process spawning so mode logic is testable
// without real subprocesses.
type commandRunner interface {
	run(ctx context.Context, inv invocation) (invocationResult, error)
}

// execRunner spawns real processes via os/exec.
type execRunner struct{}

func (execRunner) run(ctx context.Context, inv invocation) (invocationResult, error) {
	var res invocationResult

	var cmd *exec.Cmd
	var boundedCtx context.Context
	if inv.manualTimer {
		// Streaming mode spawns without a context deadline; expiry is
		// enforced by an explicit timer below.
		cmd = exec.Command(inv.binary, inv.args...)
	} else {
		var cancel context.CancelFunc
		boundedCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
		cmd = exec.CommandContext(boundedCtx, inv.binary, inv.args...)
	}

	cmd.Stdin = strings.NewReader(inv.stdin)
	cmd.Env = inv.env

	stdout := &cappedBuffer{limit: inv.maxOutputBytes}
	cmd.Stdout = stdout

	var stderrBuf bytes.Buffer
	if inv.stderr != nil {
		cmd.Stderr = inv.stderr
	} else {
		cmd.Stderr = &cappedBuffer{limit: 64 << 10, dst: &stderrBuf}
	}

	if err := cmd.Start(); err != nil {
		return res, err
	}
	release := inv.registry.track(cmd.Process)
	defer release()

	var timedOut atomic.Bool
	if inv.manualTimer {
		timer := time.AfterFunc(inv.timeout, func() {
			timedOut.Store(true)
			_ = cmd.Process.Kill()
		})
		defer timer.Stop()

		// Cooperative cancellation: an interrupt to the tool must not
		// leak the subprocess.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Kill()
			case <-watchDone:
			}
		}()
		defer close(watchDone)
	}

	waitErr := cmd.Wait()

	if c, ok := cmd.Stderr.(io.Closer); ok {
		_ = c.Close()
	}

	res.stdout = stdout.bytes()
	res.stderr = stderrBuf.String()
	res.timedOut = timedOut.Load() ||
		(boundedCtx != nil && errors.Is(boundedCtx.Err(), context.DeadlineExceeded))

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, waitErr
	}
	return res, nil
}

// cappedBuffer accumulates writes up to a limit and silently drops the
// rest. dst, when set, receives the capped bytes instead of the internal
// buffer.
type cappedBuffer struct {
	limit int
	buf   bytes.Buffer
	dst   *bytes.Buffer
}

func (b *cappedBuffer) target() *bytes.Buffer {
	if b.dst != nil {
		return b.dst
	}
	return &b.buf
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	t := b.target()
	if room := b.limit - t.Len(); room > 0 {
		if len(p) > room {
			t.Write(p[:room])
		} else {
			t.Write(p)
		}
	}
	// Report full consumption so the child never sees a write error.
	return len(p), nil
}

func (b *cappedBuffer) bytes() []byte {
	return b.target().Bytes()
}

// filteredEnv builds the child environment for this analyzer.
func (a *Analyzer) filteredEnv() []string {
	return FilterEnv(os.Environ(), a.opts.ExtraAllowedEnv)
}
