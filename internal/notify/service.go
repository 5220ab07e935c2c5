package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/scheduling"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// BookingService sends booking confirmations to patients. All sends are
// best effort; the appointment is already persisted when this runs.
type BookingService struct {
	email   EmailSender
	users   identity.Repository
	doctors directory.DoctorRepository
	logger  *logging.Logger
}

// NewBookingService creates a booking notification service.
func NewBookingService(email EmailSender, users identity.Repository, doctors directory.DoctorRepository, logger *logging.Logger) *BookingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingService{
		email:   email,
		users:   users,
		doctors: doctors,
		logger:  logger,
	}
}

// BookingConfirmed emails the patient a confirmation of their new
// appointment.
func (s *BookingService) BookingConfirmed(ctx context.Context, appt *scheduling.Appointment) error {
	if s.email == nil || s.users == nil {
		s.logger.Debug("notify: email not configured, skipping booking confirmation")
		return nil
	}

	patient, err := s.users.GetByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("notify: look up patient: %w", err)
	}

	doctorName := "your doctor"
	if s.doctors != nil {
		if doctor, err := s.doctors.GetByID(ctx, appt.DoctorID); err == nil {
			doctorName = "Dr. " + doctor.Name
		}
	}

	when := appt.Slot.Format("Monday, January 2, 2006 at 3:04 PM")
	msg := EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: "Your appointment is booked",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour appointment with %s is confirmed for %s.\n\nIf you need to reschedule, cancel the appointment and book a new slot.\n",
			patient.Name, doctorName, when,
		),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send booking confirmation: %w", err)
	}

	s.logger.Info("booking confirmation sent",
		"appointment_id", appt.ID,
		"slot", appt.Slot.Format(time.RFC3339),
	)
	return nil
}

var _ scheduling.BookingNotifier = (*BookingService)(nil)
