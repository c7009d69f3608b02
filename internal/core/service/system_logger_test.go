package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/domain"
)

func TestSystemLogger_InsertFailureIsSwallowed(t *testing.T) {
	repo := &stubLogRepo{insertErr: errors.New("db down")}
	l := NewSystemLogger(repo, zerolog.Nop())
	// Must not panic or block.
	l.Submission(context.Background(), techPrincipal, entityTransfer, "t-1", nil, testMeta)
}

func TestSystemLogger_SurvivesCancelledContext(t *testing.T) {
	repo := &stubLogRepo{}
	l := NewSystemLogger(repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l.AdminApproval(ctx, adminPrincipal, entityClaim, "c-1", false, map[string]any{"status": "rejected"}, testMeta)
	entry := repo.find("warranty_claim_rejected")
	if entry == nil {
		t.Fatalf("expected row to be written")
	}
	if entry.EventType != domain.EventAdminApproval || entry.Details["entityId"] != "c-1" || entry.UserName != "Boss" {
		t.Fatalf("unexpected row %+v", entry)
	}
}
