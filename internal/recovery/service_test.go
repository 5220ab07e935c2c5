package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/notify"
)

type captureSender struct {
	sent []notify.EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestUser(t *testing.T, users identity.Repository) *identity.User {
	t.Helper()
	hash, err := auth.HashPassword("old-password")
	require.NoError(t, err)
	user := &identity.User{
		Name:         "Sam Lee",
		Email:        "sam@example.com",
		PasswordHash: hash,
		Role:         "patient",
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

// extractCode pulls the 6-digit code out of the email body.
func extractCode(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "code is: ")
	require.GreaterOrEqual(t, idx, 0, "email body missing code")
	code := body[idx+len("code is: ") : idx+len("code is: ")+6]
	require.Len(t, code, 6)
	return code
}

func TestRequestReset_IssuesCodeAndEmail(t *testing.T) {
	users := identity.NewInMemoryRepository()
	user := newTestUser(t, users)
	sender := &captureSender{}
	svc := NewService(users, sender, nil, nil)

	require.NoError(t, svc.RequestReset(context.Background(), "sam@example.com"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "sam@example.com", sender.sent[0].To)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ResetCode, 6)
	require.NotNil(t, stored.ResetCodeExp)
	assert.WithinDuration(t, time.Now().Add(CodeTTL), *stored.ResetCodeExp, 5*time.Second)
	assert.Equal(t, extractCode(t, sender.sent[0].Body), stored.ResetCode)
}

func TestRequestReset_UnknownEmail(t *testing.T) {
	users := identity.NewInMemoryRepository()
	svc := NewService(users, &captureSender{}, nil, nil)

	err := svc.RequestReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUnknownEmail)
}

func TestRequestReset_DeliveryFailureClearsCode(t *testing.T) {
	users := identity.NewInMemoryRepository()
	user := newTestUser(t, users)
	sender := &captureSender{err: errors.New("provider down")}
	svc := NewService(users, sender, nil, nil)

	err := svc.RequestReset(context.Background(), "sam@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetCode, "undelivered code must not stay usable")
}

func TestConfirmReset_Success(t *testing.T) {
	users := identity.NewInMemoryRepository()
	user := newTestUser(t, users)
	sender := &captureSender{}
	svc := NewService(users, sender, nil, nil)

	require.NoError(t, svc.RequestReset(context.Background(), "sam@example.com"))
	code := extractCode(t, sender.sent[0].Body)

	require.NoError(t, svc.ConfirmReset(context.Background(), "sam@example.com", code, "new-password"))

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "new-password"))
	assert.False(t, auth.CheckPassword(stored.PasswordHash, "old-password"))
	assert.Empty(t, stored.ResetCode, "code must be single use")
}

func TestConfirmReset_WrongCode(t *testing.T) {
	users := identity.NewInMemoryRepository()
	newTestUser(t, users)
	sender := &captureSender{}
	svc := NewService(users, sender, nil, nil)

	require.NoError(t, svc.RequestReset(context.Background(), "sam@example.com"))
	issued := extractCode(t, sender.sent[0].Body)

	// Flip the first digit so the guess never collides with the real code.
	wrong := string('0'+(issued[0]-'0'+1)%10) + issued[1:]
	err := svc.ConfirmReset(context.Background(), "sam@example.com", wrong, "new-password")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestConfirmReset_ExpiredCodeIsCleared(t *testing.T) {
	users := identity.NewInMemoryRepository()
	user := newTestUser(t, users)
	sender := &captureSender{}
	svc := NewService(users, sender, nil, nil)

	require.NoError(t, svc.RequestReset(context.Background(), "sam@example.com"))
	code := extractCode(t, sender.sent[0].Body)

	svc.now = func() time.Time { return time.Now().Add(CodeTTL + time.Minute) }

	err := svc.ConfirmReset(context.Background(), "sam@example.com", code, "new-password")
	assert.ErrorIs(t, err, ErrCodeExpired)

	stored, gerr := users.GetByID(context.Background(), user.ID)
	require.NoError(t, gerr)
	assert.Empty(t, stored.ResetCode, "expired code must be cleared")
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "old-password"), "password must be unchanged")
}

func TestConfirmReset_NoCodeIssued(t *testing.T) {
	users := identity.NewInMemoryRepository()
	newTestUser(t, users)
	svc := NewService(users, &captureSender{}, nil, nil)

	err := svc.ConfirmReset(context.Background(), "sam@example.com", "123456", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCode)
}
