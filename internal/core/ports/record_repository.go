package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

// RecordFilter carries list/report parameters shared by transfers and claims.
type RecordFilter struct {
	Status     string    // optional exact match
	Technician string    // optional case-insensitive substring on technician name
	From       time.Time // optional created_at >= From
	To         time.Time // optional created_at <= To
	SortBy     string    // createdAt (default), technician, status
	SortOrder  string    // asc or desc (default)
	Limit      int
	Offset     int
}

// TransferRepository persists internal transfers together with their items.
type TransferRepository interface {
	Create(ctx context.Context, t *domain.InternalTransfer) error
	FindByID(ctx context.Context, id string) (*domain.InternalTransfer, error)
	List(ctx context.Context, filter RecordFilter) ([]*domain.InternalTransfer, int64, error)
	UpdatePDFPath(ctx context.Context, id, path string) error
	UpdateStatus(ctx context.Context, t *domain.InternalTransfer) error
}

// ClaimRepository persists warranty claims together with their items.
type ClaimRepository interface {
	Create(ctx context.Context, c *domain.WarrantyClaim) error
	FindByID(ctx context.Context, id string) (*domain.WarrantyClaim, error)
	List(ctx context.Context, filter RecordFilter) ([]*domain.WarrantyClaim, int64, error)
	UpdatePDFPath(ctx context.Context, id, path string) error
	UpdateReview(ctx context.Context, c *domain.WarrantyClaim) error
}
