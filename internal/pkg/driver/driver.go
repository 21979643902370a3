// Package driver implements the client side of a module invocation (spec
// §4.4): build a Run request from the current process's own environment,
// argv, cwd and standard streams; call Run over the session bus; then
// impersonate the returned worker by seizing it with ptrace, forwarding
// every signal the driver receives to it, and mirroring its exit status
// back out through the driver's own exit code. Grounded in
// original_source/src/uprocctl/main.c's message-building sequence, extended
// per spec.md with the ptrace/signal-forwarding/exit-mirroring steps that
// file's earlier run() doesn't yet have.
package driver

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"

	"github.com/refi64/uprocd/internal/pkg/busaddr"
)

// Result is the outcome of Invoke: either the worker's mirrored exit status
// (WaitStatus) or an error if the call itself could not be completed.
type Result struct {
	WorkerPID int32
	Title     string
	WaitStatus unix.WaitStatus
}

// Invoke runs module with argv, inheriting the current process's
// environment, working directory and standard streams, and blocks until
// the worker exits, forwarding signals to it the entire time.
func Invoke(module string, argv []string) (*Result, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(busaddr.Service(module), dbus.ObjectPath(busaddr.Object(module)))

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if eq := strings.IndexByte(kv, '='); eq >= 0 {
			env[kv[:eq]] = kv[eq+1:]
		}
	}

	ttys := [3]dbus.UnixFD{
		dbus.UnixFD(os.Stdin.Fd()),
		dbus.UnixFD(os.Stdout.Fd()),
		dbus.UnixFD(os.Stderr.Fd()),
	}

	var workerPID int64
	var title string
	call := obj.Call(busaddr.Service(module)+".Run", 0, env, argv, cwd, ttys, int64(os.Getpid()))
	if call.Err != nil {
		return nil, fmt.Errorf("calling Run: %w (is the module started?)", call.Err)
	}
	if err := call.Store(&workerPID, &title); err != nil {
		return nil, fmt.Errorf("decoding Run reply: %w", err)
	}

	return impersonate(int32(workerPID), title)
}

// impersonate seizes pid with ptrace, renames the driver to match the
// worker's title, forwards signals to pid until it exits, and returns its
// mirrored exit status (spec §4.4).
func impersonate(pid int32, title string) (*Result, error) {
	if err := unix.PtraceSeize(int(pid), unix.PTRACE_O_EXITKILL|unix.PTRACE_O_TRACEEXIT); err != nil {
		return nil, fmt.Errorf("ptrace seize of worker %d: %w", pid, err)
	}

	renameSelf(title)

	sigs := make(chan os.Signal, 64)
	forwarded := make([]os.Signal, 0, 31)
	for s := 1; s <= 30; s++ {
		if syscall.Signal(s) == syscall.SIGCHLD {
			continue
		}
		forwarded = append(forwarded, syscall.Signal(s))
	}
	signal.Notify(sigs, forwarded...)
	defer signal.Stop(sigs)

	go func() {
		for s := range sigs {
			if sig, ok := s.(syscall.Signal); ok {
				unix.Kill(int(pid), sig)
			}
		}
	}()

	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(int(pid), &ws, 0, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("wait4(%d): %w", pid, err)
		}
		if wpid != int(pid) {
			continue
		}

		if ws.Stopped() && ws.StopSignal() == unix.SIGTRAP && ws.TrapCause() == unix.PTRACE_EVENT_EXIT {
			exitStatus, err := unix.PtraceGetEventMsg(int(pid))
			if err != nil {
				return nil, fmt.Errorf("PTRACE_GETEVENTMSG on %d: %w", pid, err)
			}
			unix.PtraceCont(int(pid), 0)
			return &Result{WorkerPID: pid, Title: title, WaitStatus: unix.WaitStatus(exitStatus)}, nil
		}

		if ws.Exited() || ws.Signaled() {
			return &Result{WorkerPID: pid, Title: title, WaitStatus: ws}, nil
		}

		if ws.Stopped() {
			unix.PtraceCont(int(pid), int(ws.StopSignal()))
		}
	}
}
