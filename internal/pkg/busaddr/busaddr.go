// Package busaddr derives the D-Bus service name and object path for a
// module from its short name, and recovers the name from either. The
// mapping must be injective and invertible per the module identity
// invariant: two distinct module names never collide on a service name or
// object path, and either one can be parsed back to the module name.
package busaddr

import (
	"fmt"
	"strings"
)

const (
	servicePrefix = "com.refi64.uprocd.modules."
	objectPrefix  = "/com/refi64/uprocd/modules/"

	// CgrmvdService and CgrmvdObject are fixed, module-independent: there is
	// exactly one cgroup-move helper per system.
	CgrmvdService = "com.refi64.uprocd.Cgrmvd"
	CgrmvdObject  = "/com/refi64/uprocd/Cgrmvd"
	CgrmvdErrorDomain = "com.refi64.cgrmvd.Error"
)

// Service returns the well-known session-bus service name for module.
func Service(module string) string {
	return servicePrefix + module
}

// Object returns the object path exposing module's vtable.
func Object(module string) string {
	return objectPrefix + module
}

// ModuleFromService recovers the module name from a service name produced
// by Service, or reports ok=false if svc doesn't carry the expected prefix.
func ModuleFromService(svc string) (module string, ok bool) {
	if !strings.HasPrefix(svc, servicePrefix) {
		return "", false
	}
	return strings.TrimPrefix(svc, servicePrefix), true
}

// ModuleFromObject recovers the module name from an object path produced
// by Object, or reports ok=false if path doesn't carry the expected prefix.
func ModuleFromObject(path string) (module string, ok bool) {
	if !strings.HasPrefix(path, objectPrefix) {
		return "", false
	}
	return strings.TrimPrefix(path, objectPrefix), true
}

// UnitInstance returns the systemd template-unit instance identifier for
// module, e.g. "uprocd@python" for "python".
func UnitInstance(module string) string {
	return fmt.Sprintf("uprocd@%s", module)
}
