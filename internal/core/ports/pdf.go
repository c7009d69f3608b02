package ports

import (
	"context"

	"github.com/partpulse/partpulse/internal/core/domain"
)

// PDFRenderer turns records into PDF bytes.
type PDFRenderer interface {
	Transfer(ctx context.Context, t *domain.InternalTransfer) ([]byte, error)
	Claim(ctx context.Context, c *domain.WarrantyClaim) ([]byte, error)
}
