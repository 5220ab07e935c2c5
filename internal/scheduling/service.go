package scheduling

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/observability/metrics"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

var tracer = otel.Tracer("clinicbook.internal.scheduling")

// BookingNotifier delivers best-effort booking confirmations. Failures are
// logged, never surfaced to the caller.
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, appt *Appointment) error
}

// Service validates and persists appointment requests and enforces the
// status machine.
type Service struct {
	repo     Repository
	doctors  directory.DoctorRepository
	cache    *SlotCache
	notifier BookingNotifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs a scheduling service. cache, notifier, and m may be
// nil.
func NewService(repo Repository, doctors directory.DoctorRepository, cache *SlotCache,
	notifier BookingNotifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("scheduling: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		doctors:  doctors,
		cache:    cache,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Book validates the request and creates an appointment. The slot-conflict
// check is delegated to the repository so it is atomic with the insert.
func (s *Service) Book(ctx context.Context, patientID string, req BookRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.book")
	defer span.End()
	start := s.now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	slot, err := time.Parse(time.RFC3339, req.Slot)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if err := s.checkBookable(slot); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("clinicbook.doctor_id", req.DoctorID),
		attribute.String("clinicbook.slot", slot.Format(time.RFC3339)),
	)

	appt := &Appointment{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		ClinicID:  req.ClinicID,
		Slot:      slot,
		Notes:     req.Notes,
		Status:    StatusBooked,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveConflict()
			s.metrics.ObserveBooking("conflict", s.now().Sub(start).Seconds())
			return nil, err
		}
		span.RecordError(err)
		s.metrics.ObserveBooking("error", s.now().Sub(start).Seconds())
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, appt.DoctorID, appt.Slot); err != nil {
		s.logger.Warn("slot cache invalidation failed", "error", err, "doctor_id", appt.DoctorID)
	}
	if s.notifier != nil {
		if err := s.notifier.BookingConfirmed(ctx, appt); err != nil {
			s.logger.Warn("booking confirmation not sent", "error", err, "appointment_id", appt.ID)
		}
	}

	s.metrics.ObserveBooking("booked", s.now().Sub(start).Seconds())
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"slot", appt.Slot.Format(time.RFC3339),
	)
	return appt, nil
}

// checkBookable rejects past and same-day slots: anything before tomorrow's
// local start of day is not bookable.
func (s *Service) checkBookable(slot time.Time) error {
	now := s.now()
	startOfTomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, 1)
	if slot.Before(startOfTomorrow) {
		return ErrSlotInPast
	}
	return nil
}

// ListForPatient returns a patient's appointments ascending by slot, with
// doctor and clinic projections.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.list_for_patient")
	defer span.End()
	return s.repo.ListByPatient(ctx, patientID)
}

// ListForDoctor returns a doctor's appointments. The identifier may be a
// doctor id or the id of the user linked to the doctor; the user resolution
// is tried first so doctors can use their own login id.
func (s *Service) ListForDoctor(ctx context.Context, idOrUserID, statusFilter string) ([]*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.list_for_doctor")
	defer span.End()

	doctorID := s.resolveDoctorID(ctx, idOrUserID)
	appts, err := s.repo.ListByDoctor(ctx, doctorID, statusFilter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, appt := range appts {
		appt.AppointmentType = TypeOf(appt.Status)
	}
	return appts, nil
}

func (s *Service) resolveDoctorID(ctx context.Context, idOrUserID string) string {
	if s.doctors == nil {
		return idOrUserID
	}
	if doctor, err := s.doctors.GetByUserID(ctx, idOrUserID); err == nil {
		return doctor.ID
	}
	return idOrUserID
}

// BookedSlots returns the HH:MM times of the doctor's non-cancelled
// appointments on the given calendar date.
func (s *Service) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "scheduling.booked_slots")
	defer span.End()

	day, err := time.ParseInLocation("2006-01-02", date, s.now().Location())
	if err != nil {
		return nil, ErrInvalidDate
	}

	if cached, ok := s.cache.Get(ctx, doctorID, date); ok {
		return cached, nil
	}

	slots, err := s.repo.SlotsInWindow(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	times := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.IsZero() {
			// Corrupt rows are skipped rather than failing the whole read.
			s.logger.Warn("skipping appointment with unparseable slot", "doctor_id", doctorID)
			continue
		}
		times = append(times, slot.In(day.Location()).Format("15:04"))
	}

	if err := s.cache.Set(ctx, doctorID, date, times); err != nil {
		s.logger.Warn("slot cache write failed", "error", err, "doctor_id", doctorID)
	}
	return times, nil
}

// UpdateStatus transitions an appointment's status. Only the doctor on the
// appointment may transition it, regardless of which route the request came
// in on.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID, newStatus, actorUserID string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.update_status")
	defer span.End()

	if !ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !s.actorIsDoctor(ctx, actorUserID, appt.DoctorID) {
		return nil, ErrNotAllowed
	}

	updated, err := s.repo.UpdateStatus(ctx, appointmentID, newStatus)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, updated.DoctorID, updated.Slot); err != nil {
		s.logger.Warn("slot cache invalidation failed", "error", err, "doctor_id", updated.DoctorID)
	}

	s.metrics.ObserveTransition(newStatus)
	s.logger.Info("appointment status updated",
		"appointment_id", appointmentID,
		"status", newStatus,
	)
	return updated, nil
}

// Cancel soft-deletes an appointment. Either the patient or the doctor on
// the appointment may cancel; cancelling an already-cancelled appointment is
// a no-op.
func (s *Service) Cancel(ctx context.Context, appointmentID, actorUserID string) error {
	ctx, span := tracer.Start(ctx, "scheduling.cancel")
	defer span.End()

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != actorUserID && !s.actorIsDoctor(ctx, actorUserID, appt.DoctorID) {
		return ErrNotAllowed
	}
	if appt.Status == StatusCancelled {
		return nil
	}

	if _, err := s.repo.UpdateStatus(ctx, appointmentID, StatusCancelled); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.cache.Invalidate(ctx, appt.DoctorID, appt.Slot); err != nil {
		s.logger.Warn("slot cache invalidation failed", "error", err, "doctor_id", appt.DoctorID)
	}

	s.metrics.ObserveTransition(StatusCancelled)
	s.logger.Info("appointment cancelled", "appointment_id", appointmentID)
	return nil
}

func (s *Service) actorIsDoctor(ctx context.Context, actorUserID, doctorID string) bool {
	if s.doctors == nil {
		// Without a directory the doctor id and user id are the same namespace.
		return actorUserID == doctorID
	}
	doctor, err := s.doctors.GetByUserID(ctx, actorUserID)
	return err == nil && doctor.ID == doctorID
}

// StatsForUser aggregates appointment counts for dashboards. Doctors are
// resolved through their linked profile; everyone else is counted as a
// patient.
func (s *Service) StatsForUser(ctx context.Context, userID string) (*UserStats, error) {
	ctx, span := tracer.Start(ctx, "scheduling.stats_for_user")
	defer span.End()

	var appts []*Appointment
	var err error
	if s.doctors != nil {
		if doctor, derr := s.doctors.GetByUserID(ctx, userID); derr == nil {
			appts, err = s.repo.ListByDoctor(ctx, doctor.ID, "all")
		} else {
			appts, err = s.repo.ListByPatient(ctx, userID)
		}
	} else {
		appts, err = s.repo.ListByPatient(ctx, userID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stats := &UserStats{}
	now := s.now()
	for _, appt := range appts {
		stats.TotalAppointments++
		switch appt.Status {
		case StatusCompleted:
			stats.CompletedAppointments++
		case StatusCancelled:
			stats.CancelledAppointments++
		case StatusBooked:
			if appt.Slot.After(now) {
				stats.UpcomingAppointments++
			}
		}
	}
	return stats, nil
}
