package cgrouphelper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opencontainers/cgroups"
	"golang.org/x/sys/unix"

	"github.com/refi64/uprocd/internal/pkg/sylog"
)

// ErrPermission is returned (wrapped with context) whenever a move is
// rejected by policy, mirroring the reference helper's -EPERM returns.
var ErrPermission = errors.New("cgroup move not permitted by policy")

// resolveExe follows /proc/<pid>/exe, and recursively follows the result if
// it is itself a symlink, matching the reference implementation's
// readlink_bus (a defensive measure against /proc/<pid>/exe ever resolving
// to another symlink rather than a final path).
func resolveExe(pid int32) (string, error) {
	path := filepath.Join("/proc", strconv.Itoa(int(pid)), "exe")
	for {
		target, err := os.Readlink(path)
		if err != nil {
			return "", fmt.Errorf("error reading link behind %s: %w", path, err)
		}

		info, err := os.Lstat(target)
		if err != nil {
			sylog.Warningf("WARNING: lstat on %s failed: %v", target, err)
			return target, nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return target, nil
		}
		path = target
	}
}

// verifyPolicy resolves both PIDs' executables and checks the policy table
// (reference: verify_policy). It returns ErrPermission, wrapped with the
// resolved paths, on denial.
func (h *Helper) verifyPolicy(copier, origin int32) error {
	copierExe, err := resolveExe(copier)
	if err != nil {
		return err
	}
	originExe, err := resolveExe(origin)
	if err != nil {
		return err
	}

	if !h.policies.Allows(copierExe, originExe) {
		return fmt.Errorf("%w: copier %s may not copy from origin %s", ErrPermission, copierExe, originExe)
	}
	return nil
}

// controllerMountPath computes the absolute cgroupfs path for one
// controller entry of a /proc/<pid>/cgroup file, as decoded by
// cgroups.ParseCgroupFile (reference: parse_cgroup_path). A "name="
// prefix on the controller (custom named hierarchies such as
// "name=systemd") is stripped, and the empty controller key
// ParseCgroupFile uses for the cgroup v2 unified hierarchy is rendered as
// "unified".
func controllerMountPath(controller, cgPath string) string {
	controller = strings.TrimPrefix(controller, "name=")
	if controller == "" {
		controller = "unified"
	}

	p := "/sys/fs/cgroup/" + controller + cgPath
	return strings.TrimSuffix(p, "/")
}

// moveCgroups reads copier's and origin's /proc/<pid>/cgroup files via
// cgroups.ParseCgroupFile, and for every hierarchy controller the two
// share where their paths differ, writes copier's PID into origin's
// cgroup's "tasks" (or "cgroup.procs" on cgroup v2) (reference:
// move_cgroups).
func moveCgroups(copier, origin int32) error {
	copierCgroups, err := cgroups.ParseCgroupFile(filepath.Join("/proc", strconv.Itoa(int(copier)), "cgroup"))
	if err != nil {
		return err
	}
	originCgroups, err := cgroups.ParseCgroupFile(filepath.Join("/proc", strconv.Itoa(int(origin)), "cgroup"))
	if err != nil {
		return err
	}

	for controller, originCgPath := range originCgroups {
		copierCgPath, ok := copierCgroups[controller]
		if !ok {
			continue
		}

		originPath := controllerMountPath(controller, originCgPath)
		copierPath := controllerMountPath(controller, copierCgPath)
		if originPath == copierPath {
			continue
		}

		// On the cgroup v2 unified hierarchy there is no "tasks" file at
		// all, only "cgroup.procs"; go straight there instead of probing.
		target := filepath.Join(originPath, "cgroup.procs")
		if !cgroups.IsCgroup2UnifiedMode() {
			target = filepath.Join(originPath, "tasks")
			if !writable(target) {
				target = filepath.Join(originPath, "cgroup.procs")
			}
		}
		if !writable(target) {
			return fmt.Errorf("neither %s/tasks nor %s/cgroup.procs are writable", originPath, originPath)
		}

		f, err := os.OpenFile(target, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return err
		}
		_, werr := fmt.Fprintf(f, "%d\n", copier)
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
	}

	return nil
}

func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// MoveCgroup performs the full Idle -> Parsing -> Verifying -> Moving ->
// Idle sequence for a single request: verify copier is permitted to copy
// origin's cgroup, then perform the move.
func (h *Helper) MoveCgroup(copier, origin int32) error {
	if err := h.verifyPolicy(copier, origin); err != nil {
		return err
	}
	return moveCgroups(copier, origin)
}
