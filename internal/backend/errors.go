package backend

import (
	"errors"
	"fmt"
)

// UnknownVerbError indicates a command named an operation the backend does
// not provide. Non-fatal: the control loop reports it and keeps reading.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown verb: %s", e.Verb)
}

// IsUnknownVerb reports whether err indicates an unregistered verb.
func IsUnknownVerb(err error) bool {
	var ue *UnknownVerbError
	return errors.As(err, &ue)
}
