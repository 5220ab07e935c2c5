package recovery

import "errors"

var (
	// ErrUnknownEmail is returned when no account matches the email
	ErrUnknownEmail = errors.New("no account found with this email")

	// ErrInvalidCode is returned when the reset code does not match
	ErrInvalidCode = errors.New("invalid reset code")

	// ErrCodeExpired is returned when the reset code is past its expiry
	ErrCodeExpired = errors.New("reset code has expired")

	// ErrDeliveryFailed is returned when the reset email could not be sent
	ErrDeliveryFailed = errors.New("failed to send reset email")
)
