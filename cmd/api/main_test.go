package main

import (
	"context"
	"testing"

	appconfig "github.com/healthdesk/clinic-booking-platform/internal/config"
	"github.com/healthdesk/clinic-booking-platform/internal/notify"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

func TestBuildEmailSenderDefaultsToStub(t *testing.T) {
	logger := logging.New("error")

	for _, provider := range []string{"", "stub", "unknown"} {
		cfg := &appconfig.Config{EmailProvider: provider}
		sender := buildEmailSender(context.Background(), cfg, logger)
		if _, ok := sender.(*notify.StubEmailSender); !ok {
			t.Fatalf("provider %q: expected stub sender, got %T", provider, sender)
		}
	}
}

func TestBuildEmailSenderSendGridWithoutKeyFallsBack(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "sendgrid"}

	sender := buildEmailSender(context.Background(), cfg, logger)
	if _, ok := sender.(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub fallback without API key, got %T", sender)
	}
}

func TestBuildEmailSenderSendGridConfigured(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{
		EmailProvider:     "sendgrid",
		SendGridAPIKey:    "test-key",
		SendGridFromEmail: "desk@example.com",
	}

	sender := buildEmailSender(context.Background(), cfg, logger)
	if _, ok := sender.(*notify.SendGridSender); !ok {
		t.Fatalf("expected sendgrid sender, got %T", sender)
	}
}
