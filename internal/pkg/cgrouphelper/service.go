package cgrouphelper

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"

	"github.com/refi64/uprocd/internal/pkg/busaddr"
	"github.com/refi64/uprocd/internal/pkg/sylog"
)

// Helper owns the system-bus connection and policy table backing the
// com.refi64.uprocd.Cgrmvd service.
type Helper struct {
	policies *PolicyTable
	conn     *dbus.Conn
}

// New loads the initial policy set and returns a Helper ready to Serve.
func New() (*Helper, error) {
	policies := NewPolicyTable()
	if err := policies.Reload(); err != nil {
		sylog.Errorf("Error opening %s: %v", PolicyRoot, err)
	}
	return &Helper{policies: policies}, nil
}

// vtable adapts Helper to godbus's Export, matching the wire signature
// "MoveCgroup(xx)->()" (reference: service_vtable in cgrmvd.c).
type vtable struct {
	helper *Helper
}

func (v *vtable) MoveCgroup(copier, origin int64) *dbus.Error {
	if err := v.helper.MoveCgroup(int32(copier), int32(origin)); err != nil {
		sylog.Errorf("%v", err)
		return dbus.NewError(busaddr.CgrmvdErrorDomain, []interface{}{err.Error()})
	}
	return nil
}

// Serve connects to the system bus, exports the service, and blocks,
// reloading policies on SIGHUP until the process is signaled to stop
// (reference: bus_loop).
func (h *Helper) Serve() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return err
	}
	h.conn = conn
	defer conn.Close()

	if err := conn.Export(&vtable{helper: h}, busaddr.CgrmvdObject, busaddr.CgrmvdService); err != nil {
		return err
	}

	reply, err := conn.RequestName(busaddr.CgrmvdService, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		sylog.Fatalf("cgrmvd is already running")
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		sylog.Debugf("SdNotify failed (probably not running under systemd): %v", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sylog.Infof("cgrmvd listening on the system bus")
	for {
		select {
		case <-hup:
			sylog.Infof("reloading policies")
			if err := h.policies.Reload(); err != nil {
				sylog.Errorf("Error reloading policies: %v", err)
			}
		case <-stop:
			return nil
		}
	}
}
