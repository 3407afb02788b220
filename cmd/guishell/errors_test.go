package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okjarvi/guishell/internal/protocol"
	"github.com/okjarvi/guishell/internal/transport"
)

func TestExitErrorImplementsError(t *testing.T) {
	err := &ExitError{Code: 1, Message: "something failed"}

	got := err.Error()
	want := "something failed"

	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifyExit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, exitSuccess},
		{"generic error", errors.New("boom"), exitError},
		{"config document error", &protocol.ConfigError{Err: errors.New("bad json")}, exitBadConfig},
		{"wrapped config error", fmt.Errorf("bootstrap: %w", &protocol.ConfigError{Err: errors.New("bad json")}), exitBadConfig},
		{"transport error", &transport.Error{Op: transport.OpAccept, Err: errors.New("timeout")}, exitTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitErr := classifyExit(tt.err)
			if tt.err == nil {
				if exitErr != nil {
					t.Fatalf("classifyExit(nil) = %v, want nil", exitErr)
				}
				return
			}
			if exitErr.Code != tt.want {
				t.Errorf("Code = %d, want %d", exitErr.Code, tt.want)
			}
		})
	}
}
