package directory

import "errors"

var (
	// ErrMissingClinicFields is returned when name or location is absent
	ErrMissingClinicFields = errors.New("name and location are required")

	// ErrClinicExists is returned when a clinic with the same name and
	// location already exists
	ErrClinicExists = errors.New("a clinic with this name and location already exists")

	// ErrClinicNotFound is returned when no clinic matches the id
	ErrClinicNotFound = errors.New("clinic not found")

	// ErrDoctorNotFound is returned when no doctor matches the lookup
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrDoctorExists is returned when the user already has a doctor profile
	ErrDoctorExists = errors.New("doctor profile already exists for this user")
)
