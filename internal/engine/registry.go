package engine

import (
	"os"
	"sync"
)

// ProcessRegistry tracks in-flight engine subprocesses so the surrounding
// tool can terminate them on interrupt instead of leaking them. The caller
// owns the registry and invokes KillAll from its signal handler; the
// analyzer registers each spawn and releases it on completion.
type ProcessRegistry struct {
	mu    sync.Mutex
	procs map[int]*os.Process
}

// NewProcessRegistry creates an empty registry.
func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{procs: make(map[int]*os.Process)}
}

// track registers a running process and returns its release function.
// Release is idempotent and safe to defer.
func (r *ProcessRegistry) track(p *os.Process) func() {
	if r == nil || p == nil {
		return func() {}
	}
	r.mu.Lock()
	r.procs[p.Pid] = p
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.procs, p.Pid)
			r.mu.Unlock()
		})
	}
}

// KillAll terminates every tracked process. Kill errors are ignored: the
// process may already have exited, and emergency cleanup has no better
// recourse anyway.
func (r *ProcessRegistry) KillAll() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for pid, p := range r.procs {
		_ = p.Kill()
		delete(r.procs, pid)
	}
}

// Active returns the number of tracked processes.
func (r *ProcessRegistry) Active() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}
