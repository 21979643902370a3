package uprocdmodule

import (
	"testing"

	"github.com/refi64/uprocd/internal/pkg/modconf"
)

func TestMergeConfigNativeOnlyReturnsDefaults(t *testing.T) {
	native := &modconf.Config{
		Defaults: map[string]modconf.Value{
			"Greeting": {Type: modconf.ArgType{Kind: modconf.ArgString}, String: "hi"},
		},
	}
	merged := mergeConfig(native, native)
	if merged["Greeting"].String != "hi" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

func TestMergeConfigDerivedOverlaysTypedValues(t *testing.T) {
	native := &modconf.Config{
		Arguments: map[string]modconf.ArgType{
			"Greeting": {Kind: modconf.ArgString},
			"Count":    {Kind: modconf.ArgNumber},
		},
		Defaults: map[string]modconf.Value{
			"Greeting": {Type: modconf.ArgType{Kind: modconf.ArgString}, String: "hi"},
			"Count":    {Type: modconf.ArgType{Kind: modconf.ArgNumber}, Number: 1},
		},
	}
	derived := &modconf.Config{
		Kind: modconf.KindDerived,
		Base: "native",
		ValueStrings: map[string]string{
			"Greeting": "overridden",
			"Count":    "99",
			"Unknown":  "ignored",
		},
	}

	merged := mergeConfig(native, derived)
	if merged["Greeting"].String != "overridden" {
		t.Fatalf("expected overlaid Greeting, got %+v", merged["Greeting"])
	}
	if merged["Count"].Number != 99 {
		t.Fatalf("expected overlaid Count, got %+v", merged["Count"])
	}
	if _, ok := merged["Unknown"]; ok {
		t.Fatal("expected undeclared override key to be ignored")
	}
}
