package usecase

import (
	"errors"
	"fmt"

	"travel-booking/internal/client"
)

// Kind groups error codes by how the caller should treat them.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindForbidden
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a rejected operation. Two errors match under errors.Is when their
// codes are equal, so the package-level values below work as sentinels while
// each returned error carries its own message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) withf(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

func (e *Error) wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrInvalidAmount          = &Error{Kind: KindInvalid, Code: "invalid_amount", Message: fmt.Sprintf("amount must be between 1 and %d", maxAmount)}
	ErrInvalidPageSize        = &Error{Kind: KindInvalid, Code: "invalid_page_size", Message: fmt.Sprintf("page size must be between %d and %d", minPageSize, maxPageSize)}
	ErrUnknownTrip            = &Error{Kind: KindInvalid, Code: "unknown_trip", Message: "trip does not exist"}
	ErrUnknownUser            = &Error{Kind: KindInvalid, Code: "unknown_user", Message: "user does not exist"}
	ErrTripCancelled          = &Error{Kind: KindInvalid, Code: "trip_cancelled", Message: "trip is cancelled"}
	ErrBookingCancelled       = &Error{Kind: KindInvalid, Code: "booking_cancelled", Message: "booking is cancelled"}
	ErrInsufficientCapacity   = &Error{Kind: KindInvalid, Code: "insufficient_capacity", Message: "not enough capacity"}
	ErrBookingNotFound        = &Error{Kind: KindNotFound, Code: "booking_not_found", Message: "booking not found"}
	ErrForbidden              = &Error{Kind: KindForbidden, Code: "forbidden", Message: "forbidden"}
	ErrTripServiceUnavailable = &Error{Kind: KindUnavailable, Code: "trip_service_unavailable", Message: "trip service unavailable"}
)

// tripError turns a Trip service failure into the usecase taxonomy. Anything
// other than a definite 404 is unavailable.
func tripError(tripID int64, err error) error {
	if errors.Is(err, client.ErrTripNotFound) {
		return ErrUnknownTrip.withf("trip %d does not exist", tripID)
	}
	return ErrTripServiceUnavailable.wrap(err)
}

// AsError extracts the usecase error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
