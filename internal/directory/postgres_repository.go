package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresClinicRepository stores clinics in the relational database.
type PostgresClinicRepository struct {
	db *sql.DB
}

// NewPostgresClinicRepository creates a clinic repo over database/sql.
func NewPostgresClinicRepository(db *sql.DB) *PostgresClinicRepository {
	return &PostgresClinicRepository{db: db}
}

func (r *PostgresClinicRepository) List(ctx context.Context) ([]*Clinic, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, location, created_at
		FROM clinics ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("directory: list clinics: %w", err)
	}
	defer rows.Close()

	out := []*Clinic{}
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan clinic: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *PostgresClinicRepository) GetByID(ctx context.Context, id string) (*Clinic, error) {
	var c Clinic
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, created_at
		FROM clinics WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClinicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get clinic: %w", err)
	}
	return &c, nil
}

func (r *PostgresClinicRepository) Create(ctx context.Context, clinic *Clinic) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clinics
			WHERE lower(name) = lower($1) AND lower(location) = lower($2)
		)`, clinic.Name, clinic.Location).Scan(&exists)
	if err != nil {
		return fmt.Errorf("directory: clinic duplicate check: %w", err)
	}
	if exists {
		return ErrClinicExists
	}

	if clinic.ID == "" {
		clinic.ID = uuid.NewString()
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO clinics (id, name, location)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		clinic.ID, clinic.Name, clinic.Location).Scan(&clinic.CreatedAt)
	if err != nil {
		return fmt.Errorf("directory: insert clinic: %w", err)
	}
	return nil
}

func (r *PostgresClinicRepository) Update(ctx context.Context, clinic *Clinic) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clinics SET name = $2, location = $3 WHERE id = $1`,
		clinic.ID, clinic.Name, clinic.Location)
	if err != nil {
		return fmt.Errorf("directory: update clinic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClinicNotFound
	}
	return nil
}

func (r *PostgresClinicRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("directory: delete clinic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClinicNotFound
	}
	return nil
}

// PostgresDoctorRepository stores doctor profiles in the relational database.
type PostgresDoctorRepository struct {
	db *sql.DB
}

// NewPostgresDoctorRepository creates a doctor repo over database/sql.
func NewPostgresDoctorRepository(db *sql.DB) *PostgresDoctorRepository {
	return &PostgresDoctorRepository{db: db}
}

const doctorSelect = `
	SELECT d.id, d.user_id, d.name, d.specialization, COALESCE(d.clinic_id::text, ''),
	       d.license_number, d.experience_years, d.education, d.phone,
	       d.available_slots, d.is_active, d.created_at, d.updated_at,
	       c.id, c.name, c.location, c.created_at
	FROM doctors d
	LEFT JOIN clinics c ON c.id = d.clinic_id`

func (r *PostgresDoctorRepository) List(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.db.QueryContext(ctx, doctorSelect+` ORDER BY d.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("directory: list doctors: %w", err)
	}
	defer rows.Close()

	out := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresDoctorRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	row := r.db.QueryRowContext(ctx, doctorSelect+` WHERE d.id = $1`, id)
	d, err := scanDoctor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (r *PostgresDoctorRepository) GetByUserID(ctx context.Context, userID string) (*Doctor, error) {
	row := r.db.QueryRowContext(ctx, doctorSelect+` WHERE d.user_id = $1`, userID)
	d, err := scanDoctor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (r *PostgresDoctorRepository) Create(ctx context.Context, doctor *Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	var clinicID any
	if doctor.ClinicID != "" {
		clinicID = doctor.ClinicID
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, clinic_id,
		                     license_number, experience_years, education, phone,
		                     available_slots, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true)
		RETURNING created_at, updated_at`,
		doctor.ID, doctor.UserID, doctor.Name, doctor.Specialization, clinicID,
		doctor.LicenseNumber, doctor.ExperienceYears, doctor.Education, doctor.Phone,
		pq.Array(doctor.AvailableSlots)).
		Scan(&doctor.CreatedAt, &doctor.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDoctorExists
		}
		return fmt.Errorf("directory: insert doctor: %w", err)
	}
	doctor.IsActive = true
	return nil
}

func (r *PostgresDoctorRepository) UpdateSlots(ctx context.Context, doctorID string, slots []time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doctors SET available_slots = $2, updated_at = now() WHERE id = $1`,
		doctorID, pq.Array(slots))
	if err != nil {
		return fmt.Errorf("directory: update slots: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PostgresDoctorRepository) DeleteByUserID(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("directory: delete doctor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// slotTimeLayouts cover the timestamptz text forms the driver hands back.
var slotTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
}

func parseSlotTime(raw string) (time.Time, error) {
	for _, layout := range slotTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func scanDoctor(row rowScanner) (*Doctor, error) {
	var d Doctor
	var slots pq.StringArray
	var clinicID, clinicName, clinicLocation sql.NullString
	var clinicCreatedAt sql.NullTime
	if err := row.Scan(
		&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.ClinicID,
		&d.LicenseNumber, &d.ExperienceYears, &d.Education, &d.Phone,
		&slots, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		&clinicID, &clinicName, &clinicLocation, &clinicCreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("directory: scan doctor: %w", err)
	}
	d.AvailableSlots = make([]time.Time, 0, len(slots))
	for _, raw := range slots {
		ts, err := parseSlotTime(raw)
		if err != nil {
			return nil, fmt.Errorf("directory: parse slot: %w", err)
		}
		d.AvailableSlots = append(d.AvailableSlots, ts)
	}
	if clinicID.Valid {
		d.Clinic = &Clinic{
			ID:        clinicID.String,
			Name:      clinicName.String,
			Location:  clinicLocation.String,
			CreatedAt: clinicCreatedAt.Time,
		}
	}
	return &d, nil
}
