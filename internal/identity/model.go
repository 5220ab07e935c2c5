// Package identity owns user accounts, registration and login.
package identity

import (
	"strings"
	"time"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
)

// User is an account holder. The password hash and reset-code fields never
// leave the server.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	ResetCode    string     `json:"-"`
	ResetCodeExp *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	// Doctor profile fields, honored when role is "doctor".
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"licenseNumber"`
	Experience     int    `json:"experience"`
	Education      string `json:"education"`
	Phone          string `json:"phone"`
	ClinicID       string `json:"clinic"`
}

// Validate checks the required registration fields.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" ||
		r.Password == "" || r.Role == "" {
		return ErrMissingFields
	}
	// Admin accounts are provisioned out of band, not self-registered.
	if r.Role != auth.RolePatient && r.Role != auth.RoleDoctor {
		return ErrInvalidRole
	}
	return nil
}

// LoginRequest is the request body for obtaining a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateProfileRequest carries optional profile mutations.
type UpdateProfileRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
