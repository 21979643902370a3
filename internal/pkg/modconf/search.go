package modconf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/refi64/uprocd/internal/pkg/sylog"
)

// SearchPaths returns the module search roots in probe order (spec §6):
// the system-wide share directory, the user's XDG config directory
// (falling back to $HOME/.config), and a development "build/modules" tree.
func SearchPaths() []string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}

	paths := []string{"/usr/share/uprocd/modules"}
	if configHome != "" {
		paths = append(paths, filepath.Join(configHome, "uprocd", "modules"))
	}
	paths = append(paths, "build/modules")
	return paths
}

// Locate searches SearchPaths() for module's .updmod file, probing both
// "<root>/<module>.updmod" and "<root>/<module>/<module>.updmod" at each
// root, and returns the first match.
func Locate(module string) (string, error) {
	for _, root := range SearchPaths() {
		for _, candidate := range []string{
			filepath.Join(root, module+".updmod"),
			filepath.Join(root, module, module+".updmod"),
		} {
			sylog.Infof("Searching %s...", candidate)
			if _, err := os.Stat(candidate); err == nil {
				sylog.Infof("Found module at %s.", candidate)
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("cannot locate module %s config file", module)
}
