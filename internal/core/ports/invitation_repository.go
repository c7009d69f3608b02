package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

// InvitationCounts backs the communications dashboard.
type InvitationCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Expired  int64 `json:"expired"`
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	FindByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error)
	MarkAccepted(ctx context.Context, id string, at time.Time) error
	ListRecent(ctx context.Context, limit, offset int) ([]*domain.Invitation, error)
	Counts(ctx context.Context, now time.Time) (InvitationCounts, error)
}
