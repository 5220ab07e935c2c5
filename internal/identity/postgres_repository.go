package identity

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

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("identity: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, reset_code, reset_code_expires_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("identity: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("identity: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("identity: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_code = $2, reset_code_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("identity: set reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearResetCode(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET reset_code = NULL, reset_code_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("identity: clear reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	// The hash swap and code clear are one statement so an expired or reused
	// code can never leave a half-updated account.
	query := `
		UPDATE users
		SET password_hash = $2, reset_code = NULL, reset_code_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("identity: reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*User, error) {
	var user User
	var resetCode *string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&resetCode,
		&user.ResetCodeExp,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: select failed: %w", err)
	}
	if resetCode != nil {
		user.ResetCode = *resetCode
	}
	return &user, nil
}
