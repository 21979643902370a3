// Command uprocd is the per-module daemon. systemd starts one instance per
// module template unit with the fixed argv "uprocd + <module>" (reference:
// src/uprocd/main.c's "argc != 3 || argv[1][0] != '+'" guard); this process
// loads that module's native library, then calls its ModuleEntry, which
// drives the request loop via pkg/uprocdmodule.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/refi64/uprocd/internal/pkg/sylog"
	"github.com/refi64/uprocd/pkg/uprocdmodule"
)

func main() {
	if len(os.Args) != 3 || os.Args[1] != "+" {
		fmt.Fprintln(os.Stderr, "uprocd should only be explicitly started by systemd!")
		os.Exit(1)
	}
	module := os.Args[2]

	daemon, entry, err := uprocdmodule.Load(module)
	if err != nil {
		sylog.Fatalf("%v", err)
	}

	reapChildren()

	sylog.Infof("entering request loop for module %s...", module)
	entry(daemon)
}

// reapChildren installs a SIGCHLD handler that reaps any exited worker
// whose parent (this daemon) hasn't otherwise waited on it, matching
// clear_child's waitpid(-1, NULL, WNOHANG) loop. Workers are meant to be
// adopted by their driver via ptrace; this only catches ones that exit
// before the driver attaches, or whose driver died first.
func reapChildren() {
	sigchld := make(chan os.Signal, 1)
	signal.Notify(sigchld, syscall.SIGCHLD)
	go func() {
		for range sigchld {
			for {
				var ws syscall.WaitStatus
				pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
				if pid <= 0 || err != nil {
					break
				}
			}
		}
	}()
}
