// Package directory owns the clinic and doctor catalogs, including each
// doctor's published availability.
package directory

import (
	"strings"
	"time"
)

// Clinic is an independent facility that doctors and appointments reference.
type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Doctor is a practitioner profile linked one-to-one with a user account.
type Doctor struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	Specialization  string      `json:"specialization"`
	ClinicID        string      `json:"clinic_id,omitempty"`
	LicenseNumber   string      `json:"license_number"`
	ExperienceYears int         `json:"experience_years"`
	Education       string      `json:"education"`
	Phone           string      `json:"phone"`
	AvailableSlots  []time.Time `json:"available_slots"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Clinic is the joined clinic projection when one is linked.
	Clinic *Clinic `json:"clinic,omitempty"`
}

// CreateClinicRequest is the request body for adding a clinic.
type CreateClinicRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Validate checks required clinic fields.
func (r *CreateClinicRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Location) == "" {
		return ErrMissingClinicFields
	}
	return nil
}

// UpdateSlotsRequest replaces a doctor's published availability.
type UpdateSlotsRequest struct {
	AvailableSlots []time.Time `json:"available_slots"`
}
