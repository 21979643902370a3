// Package forkonly provides a bare fork(2), without the exec(2) that
// syscall.ForkExec always performs immediately afterward. This is the one
// primitive the preload-fork-adopt design (spec §1, §4.2) cannot do
// without: a worker must continue running with the daemon's already-warmed
// heap (loaded native module, parsed config, whatever the module's Enter
// preloaded) rather than starting over in a freshly exec'd process.
//
// This is exactly the operation the Go runtime warns against: after
// fork(2), only the calling OS thread exists in the child, while every
// other goroutine's state (and any lock one of them held) is frozen in
// place. Code between Fork and the child's eventual exec/exit must stick to
// raw, non-allocating syscalls — no channel sends, no maps, nothing that
// can touch the scheduler or the garbage collector. Callers are expected to
// call runtime.LockOSThread before forking and confine the child branch to
// the unix.RawSyscall-based helpers in this package until it's safe to
// rejoin ordinary Go code (after the pipe handshake in
// internal/pkg/workerinit completes).
package forkonly

import "golang.org/x/sys/unix"

// Fork calls fork(2) directly. It returns pid == 0 in the child and the
// child's PID in the parent, exactly like the C library wrapper.
func Fork() (pid uintptr, err error) {
	pid, _, errno := unix.RawSyscall(unix.SYS_FORK, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return pid, nil
}
