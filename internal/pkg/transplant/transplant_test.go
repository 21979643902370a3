package transplant

import (
	"os"
	"testing"
)

func TestReplaceEnvironReplacesWholesale(t *testing.T) {
	os.Setenv("UPROCD_TEST_STALE", "old")
	defer os.Unsetenv("UPROCD_TEST_STALE")
	defer os.Unsetenv("UPROCD_TEST_FRESH")

	replaceEnviron([]string{"UPROCD_TEST_FRESH=new"})

	if _, ok := os.LookupEnv("UPROCD_TEST_STALE"); ok {
		t.Fatal("expected stale environment variable to be cleared")
	}
	if v := os.Getenv("UPROCD_TEST_FRESH"); v != "new" {
		t.Fatalf("expected UPROCD_TEST_FRESH=new, got %q", v)
	}
}

func TestReplaceEnvironSkipsMalformedEntries(t *testing.T) {
	replaceEnviron([]string{"NOEQUALSIGN"})
	if len(os.Environ()) != 0 {
		t.Fatalf("expected empty environment, got %v", os.Environ())
	}
}
