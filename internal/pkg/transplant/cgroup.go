package transplant

import (
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/refi64/uprocd/internal/pkg/busaddr"
)

// moveCgroup asks cgrmvd, over the system bus, to move this process into
// driverPID's cgroup (spec §4.3, §7: the worker has no permission to write
// to cgroupfs itself, so it delegates to the privileged helper).
func moveCgroup(driverPID int32) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return err
	}
	defer conn.Close()

	obj := conn.Object(busaddr.CgrmvdService, dbus.ObjectPath(busaddr.CgrmvdObject))
	call := obj.Call(busaddr.CgrmvdService+".MoveCgroup", 0, int64(os.Getpid()), int64(driverPID))
	return call.Err
}
