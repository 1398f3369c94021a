// Package lifecycle holds the pure transition guards for an order's status.
// Guards only inspect the current status; the caller performs the write.
package lifecycle

import (
	"dinehub/internal/orderservice/core"
	"dinehub/pkg/models"
)

// Accept is legal only for pending orders.
func Accept(current models.Status) error {
	if current != models.StatusPending {
		return &core.InvalidTransitionError{Op: core.OpAccept, Current: current}
	}
	return nil
}

// Advance permits any move between non-terminal statuses, including
// backward ones; staff use that to correct mistakes. Terminal orders never
// move again.
func Advance(current, next models.Status) error {
	if current.Terminal() {
		return &core.InvalidTransitionError{Op: core.OpAdvance, Current: current}
	}
	return nil
}

// Cancel is legal from any non-terminal status.
func Cancel(current models.Status) error {
	if current.Terminal() {
		return &core.InvalidTransitionError{Op: core.OpCancel, Current: current}
	}
	return nil
}
