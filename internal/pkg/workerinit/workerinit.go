// Package workerinit runs in the brief window between a worker's fork(2)
// and the point where it's safe to run ordinary Go code again: it signals
// the parent that the fork succeeded and marks the worker traceable by the
// eventual driver, using only raw syscalls (see internal/pkg/forkonly for
// why allocation must wait).
package workerinit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Announce runs in the child immediately after fork(2). It marks the
// process as ptraceable by driverPID (spec §4.4: "the driver seizes the
// worker via ptrace before the worker has a chance to run arbitrary code"),
// arranges for the worker to die if the daemon dies first, writes a single
// byte to signalFD to unblock the parent's read, renames the process to
// comm (spec §4.2 step 5: "renames itself to uprocd:<module>"), and resets
// SIGINT/SIGCHLD to their default dispositions so neither the daemon's
// SIGCHLD reaper nor any handler a module installed survives into the
// worker. comm must already be a fully-built string by the time Announce
// is called (no string concatenation here) — everything below is a raw
// syscall, none of which allocate or touch the Go scheduler.
func Announce(signalFD int, driverPID int32, comm string) error {
	if _, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_PTRACER, uintptr(driverPID), 0); errno != 0 {
		return errno
	}
	if _, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_PDEATHSIG, uintptr(unix.SIGKILL), 0); errno != 0 {
		return errno
	}

	buf := [1]byte{1}
	for {
		_, _, errno := unix.RawSyscall(unix.SYS_WRITE, uintptr(signalFD), uintptr(unsafe.Pointer(&buf[0])), 1)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return errno
		}
		break
	}

	if err := setComm(comm); err != nil {
		return err
	}
	return resetDefaultSignalDispositions()
}

// setComm overwrites the kernel's process-name field (PR_SET_NAME) with up
// to 15 bytes of comm, using a stack buffer rather than
// unix.BytePtrFromString so the call never allocates.
func setComm(comm string) error {
	if len(comm) > 15 {
		comm = comm[:15]
	}
	var buf [16]byte
	copy(buf[:], comm)
	if _, _, errno := unix.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0); errno != 0 {
		return errno
	}
	return nil
}

// kernelSigaction mirrors struct kernel_sigaction as rt_sigaction(2)
// expects it: handler, flags, restorer, and a one-word signal mask
// covering the first 64 signals (SIGINT and SIGCHLD both fall well within
// it).
type kernelSigaction struct {
	handler  uintptr
	flags    uint64
	restorer uintptr
	mask     uint64
}

const sigDFL = 0

// resetDefaultSignalDispositions restores SIGINT and SIGCHLD to SIG_DFL
// via raw rt_sigaction(2) calls, undoing whatever the daemon process
// installed (cmd/uprocd's SIGCHLD reaper, any signal.Notify a module set
// up) before the worker runs the client's command (spec §4.2 step 5, §7).
func resetDefaultSignalDispositions() error {
	act := kernelSigaction{handler: sigDFL}
	for _, sig := range [...]uintptr{uintptr(unix.SIGINT), uintptr(unix.SIGCHLD)} {
		if _, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, sig, uintptr(unsafe.Pointer(&act)), 0, 8, 0, 0); errno != 0 {
			return errno
		}
	}
	return nil
}
