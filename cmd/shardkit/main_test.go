package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"exit code 0 no message", cli.Exit("", 0), 0, ""},
		{"exit code 1 with message", cli.Exit("--pattern is required", 1), 1, "--pattern is required\n"},
		{"wrapped exit coder", errors.Join(errors.New("context"), cli.Exit("inner error", 42)), 42, "inner error\n"},
		{"regular error", errors.New("write failed: boom"), 1, "Error: write failed: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := reportError(&buf, tt.err)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := []string{"write", "inspect", "verify", "version"}
	if len(app.Commands) != len(want) {
		t.Fatalf("commands = %d, want %d", len(app.Commands), len(want))
	}
	for i, name := range want {
		if app.Commands[i].Name != name {
			t.Errorf("command %d = %q, want %q", i, app.Commands[i].Name, name)
		}
	}
}
