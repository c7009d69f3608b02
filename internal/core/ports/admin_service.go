package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

type EmailStats struct {
	TotalSent        int64               `json:"totalSent"`
	TotalFailed      int64               `json:"totalFailed"`
	InvitationEmails int64               `json:"invitationEmails"`
	TransferEmails   int64               `json:"transferEmails"`
	RecentLogs       []*domain.SystemLog `json:"recentLogs"`
}

type RecentLogin struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email,omitempty"`
}

type UserStats struct {
	Total         int64         `json:"total"`
	ActiveToday   int64         `json:"activeToday"`
	NeverLoggedIn int64         `json:"neverLoggedIn"`
	RecentLogins  []RecentLogin `json:"recentLogins"`
}

type InvitationOverview struct {
	InvitationCounts
	Recent []*InvitationView `json:"recent"`
}

// InvitationView adds the derived status to an invitation row.
type InvitationView struct {
	*domain.Invitation
	Status string `json:"status"`
}

type CommunicationsReport struct {
	Invitations InvitationOverview `json:"invitations"`
	Emails      EmailStats         `json:"emails"`
	Users       UserStats          `json:"users"`
}

type AdminService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// ResetUserPassword assigns a generated temporary password and returns it.
	ResetUserPassword(ctx context.Context, p domain.Principal, userID string, meta domain.RequestMeta) (string, *domain.User, error)
	Logs(ctx context.Context, filter SystemLogFilter) ([]*domain.SystemLog, int64, error)
	Communications(ctx context.Context, limit, offset int) (*CommunicationsReport, error)
}
