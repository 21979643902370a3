// Command uprocctl (aliased "u") is the client driver: it asks a module
// daemon to run a command, then impersonates the worker it gets back
// (internal/pkg/driver). Invoking it through a symlink named "u<module>"
// (e.g. "upython") is shorthand for "uprocctl run <module>" (spec §4.4).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/godbus/dbus/v5"

	"github.com/refi64/uprocd/internal/pkg/busaddr"
	"github.com/refi64/uprocd/internal/pkg/driver"
)

func main() {
	if module, argv, ok := symlinkShorthand(); ok {
		os.Exit(runModule(module, argv))
	}

	root := &cobra.Command{
		Use:   "uprocctl",
		Short: "Communicate with uprocd modules",
	}

	runCmd := &cobra.Command{
		Use:                "run <module> [args...]",
		Short:              "Run a command through a uprocd module",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runModule(args[0], args[1:]))
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <module>",
		Short: "Show a module daemon's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0])
		},
	}

	root.AddCommand(runCmd, statusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// symlinkShorthand recognizes invocation through a "u<module>" symlink
// (argv[0]'s basename), returning the module name and the remaining
// arguments as if "uprocctl run <module>" had been typed.
func symlinkShorthand() (module string, argv []string, ok bool) {
	base := filepath.Base(os.Args[0])
	if base == "uprocctl" || base == "u" || !strings.HasPrefix(base, "u") {
		return "", nil, false
	}
	return base[1:], os.Args[1:], true
}

func runModule(module string, argv []string) int {
	result, err := driver.Invoke(module, argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("uprocctl: %v", err))
		return 1
	}

	ws := result.WaitStatus
	if ws.Exited() {
		return ws.ExitStatus()
	}
	if ws.Signaled() {
		unix.Kill(os.Getpid(), ws.Signal())
		return 128 + int(ws.Signal())
	}
	return 1
}

func runStatus(module string) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(busaddr.Service(module), dbus.ObjectPath(busaddr.Object(module)))
	var name, description string
	if err := obj.Call(busaddr.Service(module)+".Status", 0).Store(&name, &description); err != nil {
		return fmt.Errorf("calling Status: %w (is the module started?)", err)
	}

	fmt.Printf("%s: %s\n", name, description)
	return nil
}
