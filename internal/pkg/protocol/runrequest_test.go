package protocol

import "testing"

func TestNewRunRequestDedupLastWins(t *testing.T) {
	env := []EnvPair{
		{Key: "A", Value: "1"},
		{Key: "B", Value: "2"},
		{Key: "A", Value: "3"},
	}
	req := NewRunRequest(env, []string{"foo"}, "/tmp", 1234)

	if len(req.Env) != 2 {
		t.Fatalf("expected 2 deduped entries, got %d: %+v", len(req.Env), req.Env)
	}
	if req.Env[0].Key != "A" || req.Env[0].Value != "3" {
		t.Fatalf("expected A=3 (last wins) at first occurrence position, got %+v", req.Env[0])
	}
	if req.Env[1].Key != "B" || req.Env[1].Value != "2" {
		t.Fatalf("expected B=2, got %+v", req.Env[1])
	}
}

func TestRunRequestEncodeDecodeRoundTrip(t *testing.T) {
	original := NewRunRequest(
		[]EnvPair{{Key: "PATH", Value: "/bin"}, {Key: "HOME", Value: "/root"}},
		[]string{"foo", "bar"},
		"/tmp",
		4242,
	)

	decoded := FromWire(original.EnvMap(), original.Argv, original.Cwd, original.DriverPID)

	if decoded.Cwd != original.Cwd || decoded.DriverPID != original.DriverPID {
		t.Fatalf("cwd/pid mismatch: %+v vs %+v", decoded, original)
	}
	if len(decoded.Argv) != len(original.Argv) {
		t.Fatalf("argv mismatch: %v vs %v", decoded.Argv, original.Argv)
	}
	for i := range original.Argv {
		if decoded.Argv[i] != original.Argv[i] {
			t.Fatalf("argv[%d] mismatch: %q vs %q", i, decoded.Argv[i], original.Argv[i])
		}
	}
	if decoded.EnvMap()["PATH"] != "/bin" || decoded.EnvMap()["HOME"] != "/root" {
		t.Fatalf("env mismatch after round trip: %+v", decoded.Env)
	}
}

func TestRunRequestZeroArgvAllowed(t *testing.T) {
	req := NewRunRequest(nil, nil, "/tmp", 1)
	if err := req.Validate(); err != nil {
		t.Fatalf("empty env/argv request should validate: %v", err)
	}
	if len(req.Argv) != 0 {
		t.Fatalf("expected zero-length argv, got %v", req.Argv)
	}
}

func TestRunRequestValidateRejectsRelativeCwd(t *testing.T) {
	req := NewRunRequest(nil, []string{"x"}, "relative/path", 1)
	if err := req.Validate(); err == nil {
		t.Fatalf("expected validation error for relative cwd")
	}
}
