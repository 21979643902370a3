// Package main is a native module plugin demonstrating the embedding API's
// config accessors, ported from original_source/modules/simple/simple.c.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/refi64/uprocd/internal/pkg/sylog"
	"github.com/refi64/uprocd/pkg/uprocdmodule"
)

// ModuleEntry is the symbol uprocd looks up via Go's plugin package.
func ModuleEntry(d *uprocdmodule.Daemon) {
	sylog.Infof("inside ModuleEntry")

	ctx, err := d.Run()
	if err != nil {
		sylog.Fatalf("run loop exited: %v", err)
	}
	sylog.Infof("got context")

	ctx.Enter()
	sylog.Infof("entered context!")

	sylog.Infof("String: %s", d.ConfigString("String"))
	sylog.Infof("Number: %f", d.ConfigNumber("Number"))

	for i := 0; i < d.ConfigListSize("StringList"); i++ {
		sylog.Infof("StringList %s", d.ConfigStringAt("StringList", i))
	}
	for i := 0; i < d.ConfigListSize("NumberList"); i++ {
		sylog.Infof("NumberList %f", d.ConfigNumberAt("NumberList", i))
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	select {
	case <-sigint:
		sylog.Infof("got signal")
	case <-afterSleep():
		sylog.Infof("finished sleep")
	}
}
