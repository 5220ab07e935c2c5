// Package recovery implements one-time-code password reset.
package recovery

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/healthdesk/clinic-booking-platform/internal/auth"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/notify"
	"github.com/healthdesk/clinic-booking-platform/internal/observability/metrics"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

// CodeTTL is how long a reset code stays valid after it is issued.
const CodeTTL = 15 * time.Minute

// Service issues and verifies one-time reset codes.
type Service struct {
	users   identity.Repository
	email   notify.EmailSender
	metrics *metrics.RecoveryMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a recovery service. m may be nil.
func NewService(users identity.Repository, email notify.EmailSender, m *metrics.RecoveryMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:   users,
		email:   email,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// RequestReset issues a 6-digit code to the account behind the email. The
// code is only persisted if the email goes out: a code nobody received must
// not be able to reset an account.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return ErrUnknownEmail
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("recovery: generate code: %w", err)
	}
	expiresAt := s.now().Add(CodeTTL)
	if err := s.users.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("recovery: store code: %w", err)
	}

	msg := notify.EmailMessage{
		To:      user.Email,
		ToName:  user.Name,
		Subject: "Your password reset code",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour password reset code is: %s\n\nIt expires in 15 minutes. If you did not request this, you can ignore this email.\n",
			user.Name, code,
		),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("reset code delivery failed", "error", err, "user_id", user.ID)
		if clearErr := s.users.ClearResetCode(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear undelivered reset code", "error", clearErr, "user_id", user.ID)
		}
		return ErrDeliveryFailed
	}

	s.metrics.ObserveCodeIssued()
	s.logger.Info("reset code issued", "user_id", user.ID)
	return nil
}

// ConfirmReset verifies the code and swaps in the new password. An expired
// code is cleared so it cannot be retried.
func (s *Service) ConfirmReset(ctx context.Context, email, code, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.metrics.ObserveConfirmation("unknown_email")
		return ErrUnknownEmail
	}

	if user.ResetCode == "" || user.ResetCode != code {
		s.metrics.ObserveConfirmation("invalid_code")
		return ErrInvalidCode
	}
	if user.ResetCodeExp == nil || s.now().After(*user.ResetCodeExp) {
		if clearErr := s.users.ClearResetCode(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear expired reset code", "error", clearErr, "user_id", user.ID)
		}
		s.metrics.ObserveConfirmation("expired")
		return ErrCodeExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("recovery: hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("recovery: reset password: %w", err)
	}

	s.metrics.ObserveConfirmation("success")
	s.logger.Info("password reset", "user_id", user.ID)
	return nil
}

// generateCode returns a uniformly random 6-digit code, zero padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
