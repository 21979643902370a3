package uprocdmodule

import (
	"github.com/refi64/uprocd/internal/pkg/protocol"
	"github.com/refi64/uprocd/internal/pkg/transplant"
)

// RunContext is handed to a module's entry point in the forked worker: the
// decoded request plus the three already-duplicated standard-stream file
// descriptors (spec §4.2 "a RunContext"). It's a one-shot value — Enter
// consumes it.
type RunContext struct {
	title  string
	req    protocol.RunRequest
	stdin  int
	stdout int
	stderr int

	entered bool
}

func newRunContext(title string, req protocol.RunRequest, stdin, stdout, stderr int) *RunContext {
	return &RunContext{title: title, req: req, stdin: stdin, stdout: stdout, stderr: stderr}
}

// Args returns the worker's argument vector with its process title
// prepended as argv[0] (embedding API "uprocd_context_get_args", spec §3
// "title-prepended argv").
func (c *RunContext) Args() []string {
	args := make([]string, 0, len(c.req.Argv)+1)
	args = append(args, c.title)
	args = append(args, c.req.Argv...)
	return args
}

// Env returns the worker's environment as "KEY=VALUE" pairs, suitable for
// os.StartProcess/syscall.Exec or for replacing os.Environ entirely.
func (c *RunContext) Env() []string {
	out := make([]string, 0, len(c.req.Env))
	for _, p := range c.req.Env {
		out = append(out, p.Key+"="+p.Value)
	}
	return out
}

// Cwd returns the requested working directory.
func (c *RunContext) Cwd() string {
	return c.req.Cwd
}

// Command returns the executable a module should resolve and exec: its own
// configured process title (e.g. "echo" for echomod), not any element of
// the client's argument vector. req.Argv carries only the arguments to
// that command (spec §8 scenario 1: "uprocctl run echomod foo bar" with
// ProcessName=echo execs "echo", not "foo"); Args() prepends the same
// title as argv[0] for display.
func (c *RunContext) Command() string {
	return c.title
}

// Enter performs the resource transplant (spec §4.3, §7): replacing the
// environment, changing directory, wiring up the standard streams, moving
// into the client's cgroup, and attaching a controlling terminal. Every
// step, including chdir, is best-effort and only ever logged on failure —
// a worker that can't reach its requested directory still runs, since
// dying here would be strictly worse than a cold fallback. Enter may only
// be called once.
func (c *RunContext) Enter() {
	if c.entered {
		return
	}
	c.entered = true
	transplant.Enter(transplant.Request{
		Env:       c.Env(),
		Cwd:       c.req.Cwd,
		Stdin:     c.stdin,
		Stdout:    c.stdout,
		Stderr:    c.stderr,
		DriverPID: c.req.DriverPID,
	})
}

// Free releases the context's file descriptors if Enter was never called
// (e.g. the module rejected the request before entering). It's a no-op
// otherwise, since Enter's dup2 calls already closed the originals.
func (c *RunContext) Free() {
	if c.entered {
		return
	}
	closeFD(c.stdin)
	closeFD(c.stdout)
	closeFD(c.stderr)
}
