package uprocdmodule

import (
	"fmt"
	"path/filepath"
	"plugin"

	"github.com/refi64/uprocd/internal/pkg/modconf"
)

// EntryPoint is the symbol every native module plugin must export, named
// "ModuleEntry" (the Go-plugin analog of the reference implementation's
// dlsym("uprocd_module_entry")). It receives the Daemon built from the
// module's config and calls Run once: Run itself loops over bus requests
// and returns only inside a forked worker (with that worker's RunContext)
// or on a fatal bus error.
type EntryPoint func(*Daemon)

// Load resolves and parses module's .updmod file, resolves its native
// library (a Go plugin, "<dir>/<NativeLib-or-module>.so") and its
// ModuleEntry symbol, and builds the Daemon it should be called with.
// Derived modules are resolved by loading their Base module's config and
// overlaying the derived module's raw argument values (ValueStrings) on
// top of the base's Defaults (spec §6, §9 open
// question: a derived module is a pure alias over its base).
func Load(module string) (*Daemon, EntryPoint, error) {
	path, err := modconf.Locate(module)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := modconf.Parse(path)
	if err != nil {
		return nil, nil, err
	}

	native := cfg
	if cfg.Kind == modconf.KindDerived {
		basePath, err := modconf.Locate(cfg.Base)
		if err != nil {
			return nil, nil, fmt.Errorf("locating base module %s: %w", cfg.Base, err)
		}
		native, err = modconf.Parse(basePath)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing base module %s: %w", cfg.Base, err)
		}
	}

	entry, err := loadEntryPoint(module, native)
	if err != nil {
		return nil, nil, err
	}

	config := mergeConfig(native, cfg)

	processName := cfg.ProcessName
	if processName == "" {
		processName = native.ProcessName
	}
	description := cfg.Description
	if description == "" {
		description = native.Description
	}

	d := New(module, filepath.Dir(path), processName, description, config)
	return d, entry, nil
}

func loadEntryPoint(module string, native *modconf.Config) (EntryPoint, error) {
	libName := native.NativeLib
	if libName == "" {
		libName = module
	}
	libPath := filepath.Join(filepath.Dir(native.Path), libName+".so")

	p, err := plugin.Open(libPath)
	if err != nil {
		return nil, fmt.Errorf("loading native library %s: %w", libPath, err)
	}

	sym, err := p.Lookup("ModuleEntry")
	if err != nil {
		return nil, fmt.Errorf("loading ModuleEntry from %s: %w", libPath, err)
	}

	entry, ok := sym.(func(*Daemon))
	if !ok {
		return nil, fmt.Errorf("%s's ModuleEntry has the wrong signature", libPath)
	}
	return EntryPoint(entry), nil
}

// mergeConfig starts from native's Arguments/Defaults, then overlays any
// derived-module ValueStrings as re-typed values (the derived module file
// only ever carries plain strings; they're reparsed against the base
// argument's declared type).
func mergeConfig(native, derived *modconf.Config) map[string]modconf.Value {
	merged := make(map[string]modconf.Value, len(native.Defaults))
	for k, v := range native.Defaults {
		merged[k] = v
	}
	if derived == native {
		return merged
	}

	for k, raw := range derived.ValueStrings {
		t, ok := native.Arguments[k]
		if !ok {
			continue
		}
		v, err := modconf.ParseValue(k, raw, t)
		if err != nil {
			continue
		}
		merged[k] = v
	}
	return merged
}
