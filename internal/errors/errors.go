package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHoldExpired signals a booking was missing or no longer in the
	// expected status; the hold lapsed and the buyer must reselect.
	ErrHoldExpired = errors.New("hold expired, please reselect")

	// ErrForbidden signals the caller does not own the referenced resource.
	ErrForbidden = errors.New("operation is forbidden for user")
)

// ConflictError reports a seat or zone already held by someone else. It
// always names the contested resource so the client can pick another seat
// instead of retrying blindly.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is already held", e.Resource, e.ID)
}

// NewSeatConflict builds a conflict error for one seat.
func NewSeatConflict(zoneID, seatID string) *ConflictError {
	return &ConflictError{Resource: "seat", ID: zoneID + "/" + seatID}
}

// CapacityError reports that a showtime or zone pool cannot cover the
// requested units. It aborts the enclosing transaction entirely.
type CapacityError struct {
	Resource  string
	ID        string
	Requested int64
	Available int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %s capacity exceeded: requested %d, available %d",
		e.Resource, e.ID, e.Requested, e.Available)
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsCapacity reports whether err is a capacity error.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
