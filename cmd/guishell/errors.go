package main

import (
	"github.com/okjarvi/guishell/internal/protocol"
	"github.com/okjarvi/guishell/internal/transport"
)

// Exit codes for CLI commands.
const (
	exitSuccess   = 0
	exitError     = 1
	exitBadConfig = 2
	exitTransport = 3
)

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// classifyExit maps a session error onto the exit code table. Configuration
// problems (both settings.yaml and the protocol's config document) and
// transport failures get distinct codes so controllers can tell them apart.
func classifyExit(err error) *ExitError {
	if err == nil {
		return nil
	}
	code := exitError
	switch {
	case protocol.IsConfigError(err):
		code = exitBadConfig
	case transport.IsTransportError(err):
		code = exitTransport
	}
	return &ExitError{Code: code, Message: err.Error()}
}
