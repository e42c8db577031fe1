package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrConnection         = fmt.Errorf("connection failed")
	ErrNotConnected       = fmt.Errorf("not connected to OSC")
	ErrParse              = fmt.Errorf("malformed OSC message")
	ErrEncode             = fmt.Errorf("unsupported OSC argument")
	ErrPersistence        = fmt.Errorf("persistence failed")
	ErrStaleSession       = fmt.Errorf("event belongs to a closed session")
	ErrUnknownParticipant = fmt.Errorf("unknown participant")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrUnknownAction      = fmt.Errorf("unknown notification action")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrInvalidCriteria    = fmt.Errorf("invalid name criteria")
	ErrNotFound           = fmt.Errorf("not found")
)

// Is forwards to the standard library so callers only import this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
