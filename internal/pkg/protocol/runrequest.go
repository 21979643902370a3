// Package protocol defines the wire shape of the module daemon's Run
// method (spec §3, §6) independently of the D-Bus transport, so that the
// request record can be built, validated and round-tripped in tests
// without a live bus connection.
package protocol

import "fmt"

// EnvPair is one (key, value) entry of a Run request's environment.
type EnvPair struct {
	Key   string
	Value string
}

// RunRequest is the immutable record carried by a single Run call: an
// ordered, duplicate-free environment, an argument vector, a working
// directory, and the driver's PID. The three standard-stream file
// descriptors travel alongside a RunRequest but are not part of this
// struct, since on the wire they're duplicated independently of the rest
// of the payload (spec §5 "file descriptors crossing the bus are always
// duplicated").
type RunRequest struct {
	Env      []EnvPair
	Argv     []string
	Cwd      string
	DriverPID int32
}

// NewRunRequest builds a RunRequest from raw environment pairs, collapsing
// duplicate keys so that the last occurrence's value wins while the pair's
// position is that of its first occurrence (spec §3: "duplicates not
// allowed; last wins on duplicate").
func NewRunRequest(env []EnvPair, argv []string, cwd string, driverPID int32) RunRequest {
	seen := make(map[string]int, len(env))
	var out []EnvPair
	for _, p := range env {
		if idx, ok := seen[p.Key]; ok {
			out[idx].Value = p.Value
			continue
		}
		seen[p.Key] = len(out)
		out = append(out, p)
	}

	argvCopy := make([]string, len(argv))
	copy(argvCopy, argv)

	return RunRequest{Env: out, Argv: argvCopy, Cwd: cwd, DriverPID: driverPID}
}

// EnvMap returns the request's environment as a map, suitable for a D-Bus
// "a{ss}" argument.
func (r RunRequest) EnvMap() map[string]string {
	m := make(map[string]string, len(r.Env))
	for _, p := range r.Env {
		m[p.Key] = p.Value
	}
	return m
}

// FromWire reconstructs a RunRequest from the decoded D-Bus method
// arguments of Run: an env dict, an argv array, a cwd, and a driver PID.
// The dict's iteration order is not semantically meaningful (duplicates
// are already impossible once decoded into a Go map), so FromWire makes no
// ordering guarantee beyond Go's own map iteration.
func FromWire(env map[string]string, argv []string, cwd string, driverPID int32) RunRequest {
	pairs := make([]EnvPair, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, EnvPair{Key: k, Value: v})
	}
	return NewRunRequest(pairs, argv, cwd, driverPID)
}

// Validate reports whether the request satisfies the data-model invariants
// (spec §3): cwd must be absolute, and no duplicate keys may remain (the
// constructors above already guarantee this, so Validate mainly exists as
// a defensive check on requests built by hand, e.g. in tests).
func (r RunRequest) Validate() error {
	if len(r.Cwd) == 0 || r.Cwd[0] != '/' {
		return fmt.Errorf("working directory %q is not absolute", r.Cwd)
	}
	seen := make(map[string]bool, len(r.Env))
	for _, p := range r.Env {
		if seen[p.Key] {
			return fmt.Errorf("duplicate environment key %q", p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}
