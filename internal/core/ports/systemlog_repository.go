package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

// SystemLogFilter selects audit rows. Zero values mean "any".
type SystemLogFilter struct {
	EventType      domain.EventType
	UserID         string
	Action         string
	ActionPrefix   string
	ActionSuffix   string
	ActionContains string
	Success        *bool
	Since          time.Time
	Limit          int
	Offset         int
}

// SystemLogRepository is implemented by both the Postgres and Mongo stores.
type SystemLogRepository interface {
	Insert(ctx context.Context, entry *domain.SystemLog) error
	// Query returns a page ordered by timestamp descending plus the total match count.
	Query(ctx context.Context, filter SystemLogFilter) ([]*domain.SystemLog, int64, error)
	Count(ctx context.Context, filter SystemLogFilter) (int64, error)
}
