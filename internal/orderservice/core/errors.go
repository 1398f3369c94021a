package core

import (
	"errors"
	"fmt"

	"dinehub/pkg/models"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries the user-facing reason. errors.Is matches it
// against ErrValidation so handlers map the whole family to one status code.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Lifecycle operations a transition guard can reject.
const (
	OpAccept  = "accept"
	OpAdvance = "advance"
	OpCancel  = "cancel"
)

// InvalidTransitionError names the status that blocked the operation.
// The messages are stable API strings shown to panel users verbatim.
type InvalidTransitionError struct {
	Op      string
	Current models.Status
}

func (e *InvalidTransitionError) Error() string {
	switch e.Op {
	case OpAccept:
		return fmt.Sprintf("Cannot accept an order with status %q. Only pending orders can be accepted.", e.Current)
	case OpCancel:
		return fmt.Sprintf("Cannot cancel an order with status: %s.", e.Current)
	default:
		return fmt.Sprintf("Cannot change status of a %s order.", e.Current)
	}
}
