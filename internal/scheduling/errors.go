package scheduling

import "errors"

var (
	// ErrMissingFields is returned when doctor, clinic, or slot is absent
	ErrMissingFields = errors.New("doctor, clinic, and slot are required")

	// ErrInvalidSlot is returned when the slot does not parse as a timestamp
	ErrInvalidSlot = errors.New("slot must be a valid RFC 3339 timestamp")

	// ErrSlotInPast is returned for past or same-day booking attempts
	ErrSlotInPast = errors.New("appointments must be booked for a future day")

	// ErrSlotTaken is returned when the doctor already has a non-cancelled
	// appointment at that slot
	ErrSlotTaken = errors.New("this time slot is already booked")

	// ErrInvalidDate is returned when a calendar date does not parse
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

	// ErrInvalidStatus is returned for unrecognized status transitions
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNotFound is returned when no appointment matches the id
	ErrNotFound = errors.New("appointment not found")

	// ErrNotAllowed is returned when the caller is not a party to the
	// appointment
	ErrNotAllowed = errors.New("not authorized for this appointment")
)
