// Package transplant performs the worker-side half of the resource
// transplant (spec §4.3, §7): once a worker has forked off the daemon, it
// still has the daemon's environment, working directory, standard streams,
// cgroup, and process group. transplant.Enter replaces all of those with
// the client's, in a fixed order, so that by the time the module's Enter
// returns the worker looks, to everything outside it, like it was started
// directly by the client rather than adopted from a preloaded daemon.
//
// Every step here is best-effort (reference: uprocd_context_enter in
// src/uprocd/api.c performs the analogous env/cwd replacement
// unconditionally; spec.md extends this to stdio/cgroup/pgrp/tty and
// requires that none of the extra steps ever abort the worker — a worker
// that can't acquire a controlling terminal should still run).
package transplant

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/refi64/uprocd/internal/pkg/sylog"
)

// Request carries everything Enter needs to perform the transplant.
type Request struct {
	Env       []string
	Cwd       string
	Stdin     int
	Stdout    int
	Stderr    int
	DriverPID int32
}

// Enter performs, in order: environment replacement, chdir, stdio dup2,
// a best-effort cgroup move via cgrmvd, and setpgrp + TIOCSCTTY. Every step
// is logged-only on failure, including chdir: a worker stuck in the
// daemon's directory still runs, and dying here would be strictly worse
// than that cold fallback (spec §4.3 step 2, §7).
func Enter(req Request) {
	replaceEnviron(req.Env)

	if err := os.Chdir(req.Cwd); err != nil {
		sylog.Warningf("could not chdir to %s: %v", req.Cwd, err)
	}

	dupStdio(req.Stdin, req.Stdout, req.Stderr)

	if err := moveCgroup(req.DriverPID); err != nil {
		sylog.Warningf("could not move into driver's cgroup: %v", err)
	}

	if err := claimTerminal(); err != nil {
		sylog.Warningf("could not claim controlling terminal: %v", err)
	}
}

// replaceEnviron clears the process environment and installs env, matching
// uprocd_context_enter's unsetenv-everything-then-setenv-everything
// sequence.
func replaceEnviron(env []string) {
	os.Clearenv()
	for _, kv := range env {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		os.Setenv(kv[:eq], kv[eq+1:])
	}
}

// dupStdio duplicates the three fds crossing the bus onto 0, 1, and 2, then
// closes the originals if they weren't already those descriptors.
func dupStdio(stdin, stdout, stderr int) {
	dup2(stdin, 0)
	dup2(stdout, 1)
	dup2(stderr, 2)
}

func dup2(oldfd, newfd int) {
	if oldfd == newfd {
		return
	}
	if err := unix.Dup2(oldfd, newfd); err != nil {
		sylog.Warningf("dup2(%d, %d) failed: %v", oldfd, newfd, err)
		return
	}
	if oldfd > 2 {
		unix.Close(oldfd)
	}
}

// claimTerminal detaches the worker from the daemon's process group and
// attaches the controlling terminal on fd 0, if any (spec §4.3: "setpgrp +
// TIOCSCTTY, best-effort").
func claimTerminal() error {
	if err := unix.Setpgid(0, 0); err != nil {
		return err
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, 0, unix.TIOCSCTTY, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
