package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// db is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it
// in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database. Slot
// uniqueness per doctor is enforced by a partial unique index on
// (doctor_id, slot) WHERE status <> 'cancelled', so the conflict check and
// the insert are one atomic statement even across multiple API instances.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, clinic_id, slot, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	var clinicID any
	if appt.ClinicID != "" {
		clinicID = appt.ClinicID
	}
	err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		clinicID,
		appt.Slot,
		appt.Notes,
		appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("scheduling: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, COALESCE(clinic_id::text, ''), slot, notes, status, created_at, updated_at
		FROM appointments WHERE id = $1
	`
	var appt Appointment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.ClinicID,
		&appt.Slot, &appt.Notes, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: select failed: %w", err)
	}
	return &appt, nil
}

func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, COALESCE(a.clinic_id::text, ''), a.slot, a.notes, a.status,
		       a.created_at, a.updated_at,
		       COALESCE(d.name, ''), COALESCE(d.specialization, ''),
		       COALESCE(c.name, ''), COALESCE(c.location, '')
		FROM appointments a
		LEFT JOIN doctors d ON d.id = a.doctor_id
		LEFT JOIN clinics c ON c.id = a.clinic_id
		WHERE a.patient_id = $1
		ORDER BY a.slot ASC
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list by patient: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		var appt Appointment
		var doctor DoctorInfo
		var clinic ClinicInfo
		if err := rows.Scan(
			&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.ClinicID,
			&appt.Slot, &appt.Notes, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
			&doctor.Name, &doctor.Specialization,
			&clinic.Name, &clinic.Location,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan patient appointment: %w", err)
		}
		appt.Doctor = &doctor
		appt.Clinic = &clinic
		out = append(out, &appt)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListByDoctor(ctx context.Context, doctorID, statusFilter string) ([]*Appointment, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, COALESCE(a.clinic_id::text, ''), a.slot, a.notes, a.status,
		       a.created_at, a.updated_at,
		       COALESCE(u.name, ''), COALESCE(u.email, ''),
		       COALESCE(c.name, ''), COALESCE(c.location, '')
		FROM appointments a
		LEFT JOIN users u ON u.id = a.patient_id
		LEFT JOIN clinics c ON c.id = a.clinic_id
		WHERE a.doctor_id = $1
	`
	args := []any{doctorID}
	switch statusFilter {
	case "", "all":
	case "active":
		query += ` AND a.status <> 'cancelled'`
	default:
		query += ` AND a.status = $2`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY a.slot ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list by doctor: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		var appt Appointment
		var patient PatientInfo
		var clinic ClinicInfo
		if err := rows.Scan(
			&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.ClinicID,
			&appt.Slot, &appt.Notes, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
			&patient.Name, &patient.Email,
			&clinic.Name, &clinic.Location,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan doctor appointment: %w", err)
		}
		appt.Patient = &patient
		appt.Clinic = &clinic
		out = append(out, &appt)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT slot FROM appointments
		WHERE doctor_id = $1 AND status <> 'cancelled' AND slot >= $2 AND slot < $3
		ORDER BY slot ASC
	`
	rows, err := r.db.Query(ctx, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: slots in window: %w", err)
	}
	defer rows.Close()

	out := []time.Time{}
	for rows.Next() {
		var slot time.Time
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scheduling: scan slot: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, patient_id, doctor_id, COALESCE(clinic_id::text, ''), slot, notes, status, created_at, updated_at
	`
	var appt Appointment
	err := r.db.QueryRow(ctx, query, id, status).Scan(
		&appt.ID, &appt.PatientID, &appt.DoctorID, &appt.ClinicID,
		&appt.Slot, &appt.Notes, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		// Reactivating a cancelled appointment can collide with a newer
		// booking on the same slot; the partial index catches that too.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("scheduling: update status: %w", err)
	}
	return &appt, nil
}
