// Package booking holds the core decision logic of the service: the conflict
// rule, the commit and cancel operations around the backing store's
// read-validate-overwrite cycle, and the calendar projection.
package booking

import (
	"errors"
	"fmt"

	"github.com/collectiveminds/lab-booking/internal/model"
)

// ErrUnknownRoom is returned when an operation names a room outside the
// static catalogue.
var ErrUnknownRoom = errors.New("unknown room")

// ValidationError reports input the user must correct before retrying:
// an empty researcher name, an equipment label outside the room's option
// list, a malformed date or a start time that is not a listed slot.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that the requested slot is already held.  It carries
// the proposal's equipment, date and start time so the presentation layer
// can name the collision.  Retrying without changing the proposal will fail
// again.
type ConflictError struct {
	Equipment string
	Date      string
	StartTime string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already booked on %s at %s", e.Equipment, e.Date, e.StartTime)
}

// NotFoundError reports that a cancellation target no longer exists in the
// freshly loaded set, typically because another session cancelled it first.
// The caller should refresh its view and retry.
type NotFoundError struct {
	Ref model.ReservationRef
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no reservation for %s on %s at %s", e.Ref.Equipment, e.Ref.Date, e.Ref.StartTime)
}

// StoreError reports a transient failure of the backing tabular service.
// The whole operation is retryable from the load step.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
