package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		ok   bool
	}{
		{"valid", "CorrectHorse1234!", true},
		{"too short", "Short1!", false},
		{"no uppercase", "correcthorse1234!", false},
		{"no digit", "CorrectHorseBattery!", false},
		{"no special", "CorrectHorse12345", false},
		{"quote counts as special", `CorrectHorse1234"`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.pw)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestInvitationStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	accepted := now.Add(-time.Hour)

	inv := &Invitation{ExpiresAt: now.Add(time.Hour)}
	if got := inv.Status(now); got != InvitationPending {
		t.Fatalf("expected pending, got %s", got)
	}

	inv.ExpiresAt = now
	if got := inv.Status(now); got != InvitationExpired {
		t.Fatalf("expected expired at the boundary, got %s", got)
	}

	inv.AcceptedAt = &accepted
	if got := inv.Status(now); got != InvitationAccepted {
		t.Fatalf("expected accepted to win over expiry, got %s", got)
	}
}
