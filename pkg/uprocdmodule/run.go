package uprocdmodule

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/refi64/uprocd/internal/pkg/busaddr"
	"github.com/refi64/uprocd/internal/pkg/forkonly"
	"github.com/refi64/uprocd/internal/pkg/protocol"
	"github.com/refi64/uprocd/internal/pkg/sylog"
	"github.com/refi64/uprocd/internal/pkg/workerinit"
)

// vtable adapts Daemon to godbus's Export, implementing the wire methods
// "Status() -> ss" and "Run(a{ss}assahx) -> xs" (reference:
// service_vtable in src/uprocd/bus.c). The three standard-stream fds
// travel as an array of unix fds ("ah", from the [3]dbus.UnixFD
// parameter), not as a "(hhh)" struct.
type vtable struct {
	d *Daemon

	// runMu serializes Run calls. godbus dispatches each incoming method
	// call on its own goroutine, but exactly one fork may be in flight at
	// a time: the bare forkonly.Fork() this method performs assumes
	// nothing else in the process is runnable at the moment it forks, and
	// outcomes is unbuffered, so a second concurrent Run blocking on
	// outcomes<- while the loop has already returned from the first
	// HandOffToChild would hang forever with its worker already seized by
	// a driver.
	runMu sync.Mutex
}

func (v *vtable) Status() (string, string, *dbus.Error) {
	return v.d.module, v.d.Description(), nil
}

func (v *vtable) Run(env map[string]string, argv []string, cwd string, ttys [3]dbus.UnixFD, driverPID int64) (int64, string, *dbus.Error) {
	v.runMu.Lock()
	defer v.runMu.Unlock()

	title := v.d.processName
	if title == "" {
		title = v.d.module
	}

	req := protocol.FromWire(env, argv, cwd, int32(driverPID))
	if err := req.Validate(); err != nil {
		v.d.outcomes <- NoEvent{}
		return 0, "", dbus.MakeFailedError(err)
	}

	// Built now, before the fork, so the child branch below only ever reads
	// this string's already-allocated backing array rather than allocating
	// one of its own while still in the raw-syscalls-only window.
	childComm := "uprocd:" + v.d.module

	r, w, err := os.Pipe()
	if err != nil {
		v.d.outcomes <- NoEvent{}
		return 0, "", dbus.MakeFailedError(err)
	}

	runtime.LockOSThread()
	pid, ferr := forkonly.Fork()
	if ferr != nil {
		runtime.UnlockOSThread()
		r.Close()
		w.Close()
		v.d.outcomes <- NoEvent{}
		return 0, "", dbus.MakeFailedError(ferr)
	}

	if pid != 0 {
		// Parent: block until the child has finished its pre-Go-runtime
		// handshake (prctl calls), matching "the driver must not be allowed
		// to race the worker's own ptrace setup" (spec §4.4).
		runtime.UnlockOSThread()
		w.Close()
		var buf [1]byte
		r.Read(buf[:])
		r.Close()

		v.d.outcomes <- ReplyAndContinue{WorkerPID: int32(pid), Title: title}
		return int64(pid), title, nil
	}

	// Child. From here until Announce returns, only raw syscalls are safe
	// (see internal/pkg/forkonly); os.Pipe's fds are plain fds by this
	// point so closing/writing to them is fine.
	r.Close()
	if err := workerinit.Announce(int(w.Fd()), int32(driverPID), childComm); err != nil {
		sylog.Errorf("worker handshake failed: %v", err)
	}
	w.Close()

	ctx := newRunContext(title, req, int(ttys[0]), int(ttys[1]), int(ttys[2]))
	v.d.outcomes <- HandOffToChild{Context: ctx}

	// The parent's Run loop (below) receives the HandOffToChild value and
	// returns without ever sending a bus reply for this call, exactly as
	// the reference implementation's longjmp(return_to_loop) abandons the
	// message without replying. Goexit lets any deferred cleanup in
	// godbus's own dispatch frames still run, without this goroutine
	// falling through to a return statement that doesn't exist for this
	// code path.
	runtime.Goexit()
	panic("unreachable")
}

// Run connects to the session bus, exports this module's object, notifies
// systemd readiness, and blocks handling Status/Run calls until a Run call
// produces a worker (in which case Run returns its RunContext) or a fatal
// bus error occurs (in which case Run returns that error after invoking the
// registered exit handler, if any).
func (d *Daemon) Run() (*RunContext, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, d.fail(fmt.Errorf("connecting to session bus: %w", err))
	}

	if err := conn.Export(&vtable{d: d}, dbus.ObjectPath(busaddr.Object(d.module)), busaddr.Service(d.module)); err != nil {
		conn.Close()
		return nil, d.fail(fmt.Errorf("exporting object: %w", err))
	}

	reply, err := conn.RequestName(busaddr.Service(d.module), dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, d.fail(fmt.Errorf("requesting bus name: %w", err))
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, d.fail(fmt.Errorf("module %s is already running", d.module))
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		sylog.Debugf("SdNotify failed (probably not running under systemd): %v", err)
	}

	sylog.Infof("module %s listening as %s", d.module, busaddr.Service(d.module))

	for outcome := range d.outcomes {
		switch o := outcome.(type) {
		case NoEvent:
			continue
		case ReplyAndContinue:
			sylog.Infof("forked worker %d (%s)", o.WorkerPID, o.Title)
			continue
		case HandOffToChild:
			// The child's copy of conn is unused from here on; it belongs
			// to the parent's bus session, not this worker.
			return o.Context, nil
		}
	}

	return nil, d.fail(fmt.Errorf("outcome channel closed unexpectedly"))
}

func (d *Daemon) fail(err error) error {
	if _, nerr := daemon.SdNotify(false, daemon.SdNotifyStopping); nerr != nil {
		sylog.Debugf("SdNotify failed: %v", nerr)
	}
	if d.exitHandler != nil {
		d.exitHandler()
	}
	return err
}
