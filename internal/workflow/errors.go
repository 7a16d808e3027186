package workflow

import (
	"errors"
	"fmt"
)

// ValidationError rejects a transition whose payload or current state fails a
// stage guard: missing required field, bad enum, cooldown not elapsed,
// sequence precondition unmet, duplicate start, no open session to end.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func validationf(stage, format string, args ...interface{}) error {
	return &ValidationError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// InvalidStageError rejects a transition naming a stage outside the fixed
// stage list.
type InvalidStageError struct {
	Stage string
}

func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("invalid stage: %q", e.Stage)
}

// StoreError wraps a persistence failure. The caller may retry the whole
// transition; the engine never retries internally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError or InvalidStageError,
// i.e. a client error rather than an infrastructure failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	var se *InvalidStageError
	return errors.As(err, &ve) || errors.As(err, &se)
}

// IsStoreError reports whether err originates from the persistence layer.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
