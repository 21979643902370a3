// Package uprocdmodule is the embedding API a module's native code links
// against (spec §4.1). It replaces the original C API's function-pointer
// table and process-wide global_run_data with an explicit *Daemon value
// threaded through every call, per the "no process-wide mutable singleton"
// design note (spec §9): a module entry point receives one Daemon, calls
// Run to block until a client invokes it, enters the returned RunContext,
// and runs the user's command.
package uprocdmodule

import (
	"path/filepath"

	"github.com/refi64/uprocd/internal/pkg/modconf"
)

// Daemon is the per-process state of a single module instance: its name,
// optional process-title override, optional description, and its typed
// configuration values (spec §3 "Global daemon state"). godbus dispatches
// each incoming bus call on its own goroutine, but the exported vtable
// serializes Run calls with a mutex so that at most one fork is ever in
// flight, preserving the single-in-flight-request model spec §5 describes.
type Daemon struct {
	module      string
	dir         string
	processName string
	description string
	config      map[string]modconf.Value

	exitHandler func()

	outcomes chan Outcome
}

// New constructs a Daemon for module, whose config file lives at dir, with
// the given process-title override, description, and merged
// Arguments/Defaults config values (derived modules have already overlaid
// their ValueStrings onto the base's Defaults by the time this is called).
func New(module, dir, processName, description string, config map[string]modconf.Value) *Daemon {
	return &Daemon{
		module:      module,
		dir:         dir,
		processName: processName,
		description: description,
		config:      config,
		outcomes:    make(chan Outcome),
	}
}

// Directory returns the absolute directory containing the module's config
// file (embedding API "module_directory").
func (d *Daemon) Directory() string {
	return d.dir
}

// Path joins rel onto Directory() (embedding API "module_path").
func (d *Daemon) Path(rel string) string {
	return filepath.Join(d.dir, rel)
}

// ConfigPresent reports whether key was parsed into the config map
// (embedding API "config_present").
func (d *Daemon) ConfigPresent(key string) bool {
	_, ok := d.config[key]
	return ok
}

// ConfigListSize returns the length of key's value if it's a list, -1 if
// key is absent, or 1 if key is present but scalar (embedding API
// "config_list_size": "unspecified if present-but-scalar, treated as 1 by
// callers").
func (d *Daemon) ConfigListSize(key string) int {
	v, ok := d.config[key]
	if !ok {
		return -1
	}
	if !v.Type.List {
		return 1
	}
	if v.Type.Kind == modconf.ArgNumber {
		return len(v.Numbers)
	}
	return len(v.Strings)
}

// ConfigString returns key's scalar string value, or "" if absent or of
// the wrong type (embedding API "config_string").
func (d *Daemon) ConfigString(key string) string {
	v, ok := d.config[key]
	if !ok || v.Type.List || v.Type.Kind != modconf.ArgString {
		return ""
	}
	return v.String
}

// ConfigStringAt returns element i of key's string list, or "" if absent,
// not a list, or out of range (embedding API "config_string_at").
func (d *Daemon) ConfigStringAt(key string, i int) string {
	v, ok := d.config[key]
	if !ok || !v.Type.List || v.Type.Kind != modconf.ArgString {
		return ""
	}
	if i < 0 || i >= len(v.Strings) {
		return ""
	}
	return v.Strings[i]
}

// ConfigNumber returns key's scalar numeric value, or 0.0 if absent or of
// the wrong type (embedding API "config_number").
func (d *Daemon) ConfigNumber(key string) float64 {
	v, ok := d.config[key]
	if !ok || v.Type.List || v.Type.Kind != modconf.ArgNumber {
		return 0
	}
	return v.Number
}

// ConfigNumberAt returns element i of key's number list, or 0.0 if absent,
// not a list, or out of range (embedding API "config_number_at").
func (d *Daemon) ConfigNumberAt(key string, i int) float64 {
	v, ok := d.config[key]
	if !ok || !v.Type.List || v.Type.Kind != modconf.ArgNumber {
		return 0
	}
	if i < 0 || i >= len(v.Numbers) {
		return 0
	}
	return v.Numbers[i]
}

// OnExit registers a callback invoked once, when Run's bus loop exits for
// any reason (embedding API "on_exit"). A later call replaces an earlier
// one ("latest call wins").
func (d *Daemon) OnExit(f func()) {
	d.exitHandler = f
}

// Name returns the module's short name.
func (d *Daemon) Name() string { return d.module }

// ProcessName returns the configured title override, or "" if unset.
func (d *Daemon) ProcessName() string { return d.processName }

// Description returns the configured description, or "<none>" if unset,
// matching the Status() bus method's default (spec §6).
func (d *Daemon) Description() string {
	if d.description == "" {
		return "<none>"
	}
	return d.description
}
