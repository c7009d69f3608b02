package service

import (
	"testing"

	"github.com/partpulse/partpulse/internal/core/domain"
)

func TestNewToken(t *testing.T) {
	raw, hash, err := newToken()
	if err != nil {
		t.Fatalf("newToken: %v", err)
	}
	if len(raw) != 64 || len(hash) != 64 {
		t.Fatalf("unexpected lengths raw=%d hash=%d", len(raw), len(hash))
	}
	if hashToken(raw) != hash {
		t.Fatalf("hash mismatch")
	}
	other, _, _ := newToken()
	if other == raw {
		t.Fatalf("tokens must differ")
	}
}

func TestNewTempPassword_SatisfiesPolicy(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := newTempPassword()
		if err != nil {
			t.Fatalf("newTempPassword: %v", err)
		}
		if err := domain.ValidatePassword(pw); err != nil {
			t.Fatalf("generated password %q rejected: %v", pw, err)
		}
	}
}
