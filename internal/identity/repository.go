package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for user storage.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error

	// SetResetCode stores a one-time reset code with its expiry.
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	// ClearResetCode removes any stored reset code.
	ClearResetCode(ctx context.Context, userID string) error
	// ResetPassword stores a new password hash and clears the reset code in
	// the same update.
	ResetPassword(ctx context.Context, userID, passwordHash string) error
}

// InMemoryRepository is a Repository backed by a map, used in tests and when
// no database is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cloned := *user
	r.users[user.ID] = &cloned
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cloned := *user
	return &cloned, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			cloned := *user
			return &cloned, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	for id, existing := range r.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	cloned := *user
	cloned.CreatedAt = stored.CreatedAt
	cloned.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = &cloned
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *InMemoryRepository) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.ResetCode = code
	exp := expiresAt
	user.ResetCodeExp = &exp
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) ClearResetCode(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.ResetCode = ""
	user.ResetCodeExp = nil
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetCode = ""
	user.ResetCodeExp = nil
	user.UpdatedAt = time.Now().UTC()
	return nil
}
