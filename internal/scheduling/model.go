// Package scheduling owns appointments: booking with slot-conflict detection,
// listings, status transitions, and soft cancellation.
package scheduling

import (
	"strings"
	"time"
)

// Appointment statuses. Cancellation is a status, not a deletion, so booking
// history stays queryable.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Derived appointment types surfaced on doctor listings.
const (
	TypeActive    = "active"
	TypeCancelled = "cancelled"
)

// Appointment is a booked slot. Patient, doctor and clinic references are
// non-owning ids; deleting those entities leaves the appointment in place.
type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	ClinicID  string    `json:"clinic_id"`
	Slot      time.Time `json:"slot"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Projections joined for list responses.
	Doctor  *DoctorInfo  `json:"doctor,omitempty"`
	Clinic  *ClinicInfo  `json:"clinic,omitempty"`
	Patient *PatientInfo `json:"patient,omitempty"`

	// AppointmentType is derived from status on doctor listings.
	AppointmentType string `json:"appointment_type,omitempty"`
}

// DoctorInfo is the minimal doctor projection attached to listings.
type DoctorInfo struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// ClinicInfo is the minimal clinic projection attached to listings.
type ClinicInfo struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// PatientInfo is the minimal patient projection attached to doctor listings.
type PatientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookRequest is the request body for booking an appointment. Slot is an
// RFC 3339 timestamp.
type BookRequest struct {
	DoctorID string `json:"doctor"`
	ClinicID string `json:"clinic"`
	Slot     string `json:"slot"`
	Notes    string `json:"notes"`
}

// Validate checks required booking fields.
func (r *BookRequest) Validate() error {
	if strings.TrimSpace(r.DoctorID) == "" || strings.TrimSpace(r.ClinicID) == "" ||
		strings.TrimSpace(r.Slot) == "" {
		return ErrMissingFields
	}
	return nil
}

// ValidStatus reports whether s is a recognized appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusBooked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TypeOf derives the appointment type from a status.
func TypeOf(status string) string {
	if status == StatusCancelled {
		return TypeCancelled
	}
	return TypeActive
}

// UserStats aggregates a caller's appointment history for dashboards.
type UserStats struct {
	TotalAppointments     int `json:"totalAppointments"`
	UpcomingAppointments  int `json:"upcomingAppointments"`
	CompletedAppointments int `json:"completedAppointments"`
	CancelledAppointments int `json:"cancelledAppointments"`
}
