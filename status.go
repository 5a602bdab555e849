package pcq

import (
	"github.com/wippyai/pcq/errors"
)

// Status is the result of every view and trait operation.
type Status uint8

const (
	// Success means the operation completed.
	Success Status = iota
	// NotReady means the ring is too full to write or too empty to read.
	// The operation may succeed if retried.
	NotReady
	// TypeError means a type tag did not match the expected type.
	TypeError
	// TooSmall means the operation needs more room than the ring can ever
	// offer. It must not be retried.
	TooSmall
	// FatalError is an unrecoverable protocol violation. Every status at or
	// above this value is fatal.
	FatalError
	// OOMError means materializing a deserialized value failed to allocate.
	OOMError
)

var statusNames = [...]string{
	Success:    "success",
	NotReady:   "not_ready",
	TypeError:  "type_error",
	TooSmall:   "too_small",
	FatalError: "fatal_error",
	OOMError:   "oom_error",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// OK reports whether s is Success.
func (s Status) OK() bool { return s == Success }

// IsFatal reports whether s is at or above FatalError.
func (s Status) IsFatal() bool { return s >= FatalError }

// Retryable reports whether retrying the same operation later may succeed.
func (s Status) Retryable() bool { return s == NotReady }

// Err converts s to a structured error. It returns nil for Success.
func (s Status) Err(phase errors.Phase) error {
	switch s {
	case Success:
		return nil
	case NotReady:
		return errors.New(phase, errors.KindNotReady).Build()
	case TypeError:
		return errors.New(phase, errors.KindTypeMismatch).Build()
	case TooSmall:
		return errors.New(phase, errors.KindTooSmall).Build()
	case OOMError:
		return errors.New(phase, errors.KindAllocation).Build()
	default:
		return errors.New(phase, errors.KindFatal).Value(s).Build()
	}
}
