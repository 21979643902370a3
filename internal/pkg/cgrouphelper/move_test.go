package cgrouphelper

import (
	"os"
	"path/filepath"
	"testing"
)

func TestControllerMountPathStripsNamePrefixAndTrailingSlash(t *testing.T) {
	got := controllerMountPath("name=systemd", "/user.slice/")
	want := "/sys/fs/cgroup/systemd/user.slice"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestControllerMountPathUnifiedHierarchy(t *testing.T) {
	got := controllerMountPath("", "/user.slice/user@1000.service")
	want := "/sys/fs/cgroup/unified/user.slice/user@1000.service"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPolicyTableAllows(t *testing.T) {
	tbl := NewPolicyTable()
	dst := map[string][]string{"/usr/bin/uprocctl": {"/usr/bin/uprocd"}}
	tbl.mu.Lock()
	tbl.origins = dst
	tbl.mu.Unlock()

	if !tbl.Allows("/usr/bin/uprocctl", "/usr/bin/uprocd") {
		t.Fatal("expected policy to allow declared origin")
	}
	if tbl.Allows("/usr/bin/uprocctl", "/usr/bin/evil") {
		t.Fatal("expected policy to reject undeclared origin")
	}
	if tbl.Allows("/usr/bin/unknown", "/usr/bin/uprocd") {
		t.Fatal("expected policy to reject unknown copier")
	}
}

func TestReadPolicyFileParsesMultipleOrigins(t *testing.T) {
	dst := make(map[string][]string)
	content := "# comment\n/usr/bin/a : /usr/bin/b /usr/bin/c\n\n/usr/bin/d : /usr/bin/e\n"
	f := writeTempFile(t, content)
	readPolicyFile(f, dst)

	if len(dst["/usr/bin/a"]) != 2 {
		t.Fatalf("expected 2 origins for a, got %v", dst["/usr/bin/a"])
	}
	if len(dst["/usr/bin/d"]) != 1 {
		t.Fatalf("expected 1 origin for d, got %v", dst["/usr/bin/d"])
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.policy")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
