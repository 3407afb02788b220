package transport

import (
	"errors"
	"fmt"
)

// Op is the transport operation that failed.
type Op string

const (
	OpSpawn   Op = "spawn"
	OpListen  Op = "listen"
	OpAccept  Op = "accept"
	OpTrigger Op = "trigger"
)

// Error indicates a pivot could not be established. Transport errors during
// bootstrap are fatal.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s pivot transport: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err indicates a transport failure.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
