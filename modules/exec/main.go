// Package main is a native module plugin (built with "go build
// -buildmode=plugin") that runs the client's command as-is: once a worker
// has entered its transplanted context, it execs the requested command
// directly, replacing this process's image. This is the module used by the
// "echomod" example in spec.md's end-to-end scenarios.
package main

import (
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/refi64/uprocd/internal/pkg/sylog"
	"github.com/refi64/uprocd/pkg/uprocdmodule"
)

// ModuleEntry is the symbol uprocd looks up via Go's plugin package
// (reference: dlsym("uprocd_module_entry")).
func ModuleEntry(d *uprocdmodule.Daemon) {
	ctx, err := d.Run()
	if err != nil {
		sylog.Fatalf("run loop exited: %v", err)
	}

	ctx.Enter()

	path, err := exec.LookPath(ctx.Command())
	if err != nil {
		sylog.Fatalf("resolving %s: %v", ctx.Command(), err)
	}

	if err := unix.Exec(path, ctx.Args(), ctx.Env()); err != nil {
		sylog.Fatalf("exec %s: %v", path, err)
	}
}
