// Package cgrouphelper implements cgrmvd's policy engine: the cgroup-move
// privilege-separation helper that lets a module worker (the "copier")
// request that its cgroup membership be replaced with a trusted process's
// (the "origin"), without granting the worker any broader privilege (spec
// §4.3, §7). Grounded directly in original_source/src/cgrmvd/cgrmvd.c,
// reusing its state machine (Idle -> Parsing -> Verifying -> Moving ->
// Idle, and Idle -> Reloading -> Idle) and its exe-allowlist model.
package cgrouphelper

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/refi64/uprocd/internal/pkg/sylog"
)

// PolicyRoot is the directory scanned for "*.policy" files, matching the
// reference helper's hardcoded path.
const PolicyRoot = "/usr/share/cgrmvd/policies"

// PolicyTable maps a copier's resolved executable path to the set of
// origin executable paths it's allowed to copy a cgroup from.
type PolicyTable struct {
	mu       sync.RWMutex
	origins  map[string][]string
}

// NewPolicyTable returns an empty table; call Reload to populate it.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{origins: make(map[string][]string)}
}

// Reload re-reads every "*.policy" file under PolicyRoot, replacing the
// table's contents wholesale (spec: a SIGHUP-triggered Idle -> Reloading ->
// Idle transition). A read or parse failure on one file is logged and
// skipped; it does not abort the reload.
func (t *PolicyTable) Reload() error {
	entries, err := os.ReadDir(PolicyRoot)
	if err != nil {
		return err
	}

	fresh := make(map[string][]string)
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." || entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(name, ".policy") {
			sylog.Warningf("Invalid file path (expected .policy): %s", name)
			continue
		}
		readPolicyFile(filepath.Join(PolicyRoot, name), fresh)
	}

	t.mu.Lock()
	t.origins = fresh
	t.mu.Unlock()
	return nil
}

// readPolicyFile parses one "copier_path : origin_path [origin_path ...]"
// file into dst, logging and skipping malformed lines. A line that starts
// with "#" after trimming whitespace is a comment.
func readPolicyFile(path string, dst map[string][]string) {
	f, err := os.Open(path)
	if err != nil {
		sylog.Errorf("Error opening %s: %v", path, err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.Trim(scanner.Text(), "\t ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		mid := strings.Index(line, " : ")
		if mid < 0 {
			sylog.Errorf("Error parsing %s:%d.", path, lineno)
			continue
		}

		copier := strings.TrimSpace(line[:mid])
		origins := strings.Fields(line[mid+3:])
		if _, dup := dst[copier]; dup {
			sylog.Warningf("WARNING: Copier %s has multiple origin values", copier)
		}
		dst[copier] = origins
	}
}

// Allows reports whether copierExe is permitted to copy a cgroup from
// originExe.
func (t *PolicyTable) Allows(copierExe, originExe string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	origins, ok := t.origins[copierExe]
	if !ok {
		return false
	}
	for _, o := range origins {
		if o == originExe {
			return true
		}
	}
	return false
}
