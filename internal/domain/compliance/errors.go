package compliance

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrPolicyExists          = errors.New("retention policy already exists for entity type")
	ErrWrongRequestType      = errors.New("request type does not match operation")
	ErrMissingUserID         = errors.New("request has no associated user")
	ErrUnknownClassification = errors.New("classification does not exist")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrUnmappedEntityType    = errors.New("entity type has no mapped store")
	ErrDuplicate             = errors.New("record already exists")
)

// ValidationError reports a client-supplied invariant violation. It matches
// ErrValidation with errors.Is and unwraps to the specific cause.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string, cause error) error {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}
