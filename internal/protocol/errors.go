package protocol

import (
	"errors"
	"fmt"
)

// ConfigError indicates the pre-handshake configuration document was not
// valid JSON. It is fatal to bootstrap.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("parse configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err indicates a configuration parse failure.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// CommandError indicates a command line could not be parsed: either the
// verb/argument separator is missing or the argument object is malformed.
type CommandError struct {
	Line   string
	Reason string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse command %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse command %q: %s", e.Line, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err indicates a command parse failure.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
