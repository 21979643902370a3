package modconf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.updmod")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseNativeModuleWithArgumentsAndDefaults(t *testing.T) {
	path := writeConfig(t, `[NativeModule]
ProcessName=echo
Description=a test module

[Arguments]
Greeting=string
Counts=list number

[Defaults]
Greeting=hello there
Counts=1 2 3
`)

	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Kind != KindNative {
		t.Fatalf("expected KindNative, got %v", cfg.Kind)
	}
	if cfg.ProcessName != "echo" || cfg.Description != "a test module" {
		t.Fatalf("unexpected header fields: %+v", cfg)
	}
	if cfg.Defaults["Greeting"].String != "hello there" {
		t.Fatalf("unexpected Greeting default: %+v", cfg.Defaults["Greeting"])
	}
	want := []float64{1, 2, 3}
	got := cfg.Defaults["Counts"].Numbers
	if len(got) != len(want) {
		t.Fatalf("unexpected Counts default: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Counts[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseContinuationLinesNormalizeIndent(t *testing.T) {
	path := writeConfig(t, "[NativeModule]\nDescription=first line\n   second line\n   third line\n")

	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := "first line\nsecond line\nthird line"
	if cfg.Description != want {
		t.Fatalf("got %q, want %q", cfg.Description, want)
	}
}

func TestParseDerivedModuleRequiresBase(t *testing.T) {
	path := writeConfig(t, "[DerivedModule]\nProcessName=foo\n")
	if _, err := Parse(path); err == nil {
		t.Fatal("expected an error for a DerivedModule without Base")
	}
}

func TestParseRejectsDuplicateModuleDeclaration(t *testing.T) {
	path := writeConfig(t, "[NativeModule]\n[NativeModule]\n")
	if _, err := Parse(path); err == nil {
		t.Fatal("expected an error for a duplicate module declaration")
	}
}

func TestParseRejectsArgumentsOnDerivedModule(t *testing.T) {
	path := writeConfig(t, "[DerivedModule]\nBase=x\n[Arguments]\nFoo=string\n")
	if _, err := Parse(path); err == nil {
		t.Fatal("expected an error for [Arguments] on a DerivedModule")
	}
}

func TestParseCommentsAndBlankLinesIgnored(t *testing.T) {
	path := writeConfig(t, "# a comment\n\n[NativeModule]\n# another comment\nProcessName=x\n")
	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.ProcessName != "x" {
		t.Fatalf("got %q, want x", cfg.ProcessName)
	}
}
