package uprocdmodule

import (
	"testing"

	"github.com/refi64/uprocd/internal/pkg/protocol"
)

func TestRunContextArgsPrependsTitle(t *testing.T) {
	// req.Argv is the CLI tail a driver forwards (e.g. "uprocctl run
	// echomod foo bar" sends Argv=["foo","bar"]); it never carries a
	// leading binary name of its own.
	req := protocol.NewRunRequest(nil, []string{"foo", "bar"}, "/tmp", 1)
	ctx := newRunContext("echo", req, 0, 1, 2)

	args := ctx.Args()
	want := []string{"echo", "foo", "bar"}
	if len(args) != len(want) {
		t.Fatalf("got %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestRunContextCommandIsProcessTitleNotArgv(t *testing.T) {
	// Command is what a module execs: its own configured ProcessName, not
	// anything the client supplied in Argv.
	req := protocol.NewRunRequest(nil, []string{"foo", "bar"}, "/tmp", 1)
	ctx := newRunContext("echo", req, 0, 1, 2)

	if got := ctx.Command(); got != "echo" {
		t.Fatalf("got %q, want echo", got)
	}
	if ctx.Args()[0] != "echo" {
		t.Fatalf("Args()[0] = %q, want echo", ctx.Args()[0])
	}
}

func TestRunContextEnv(t *testing.T) {
	req := protocol.NewRunRequest(
		[]protocol.EnvPair{{Key: "A", Value: "1"}, {Key: "B", Value: "2"}},
		nil, "/tmp", 1,
	)
	ctx := newRunContext("t", req, 0, 1, 2)

	env := ctx.Env()
	seen := map[string]bool{}
	for _, kv := range env {
		seen[kv] = true
	}
	if !seen["A=1"] || !seen["B=2"] {
		t.Fatalf("unexpected env: %v", env)
	}
}

func TestRunContextCommandStableWithNoArgv(t *testing.T) {
	req := protocol.NewRunRequest(nil, nil, "/tmp", 1)
	ctx := newRunContext("t", req, 0, 1, 2)
	if got := ctx.Command(); got != "t" {
		t.Fatalf("got %q, want t", got)
	}
}
