package identity

import "errors"

var (
	// ErrMissingFields is returned when required registration fields are absent
	ErrMissingFields = errors.New("name, email, password, and role are required")

	// ErrInvalidRole is returned when the role is not patient or doctor
	ErrInvalidRole = errors.New("role must be either \"patient\" or \"doctor\"")

	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrBadCredentials is returned on login failure; it deliberately does not
	// distinguish unknown email from wrong password
	ErrBadCredentials = errors.New("invalid credentials")
)
