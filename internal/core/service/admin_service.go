package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	defaultCommunicationsLimit = 50
	recentLoginLimit           = 20
)

// AdminService backs the admin dashboard.
type AdminService struct {
	users       ports.UserRepository
	invitations ports.InvitationRepository
	logs        ports.SystemLogRepository
	audit       *SystemLogger
	log         zerolog.Logger
	now         func() time.Time
}

func NewAdminService(users ports.UserRepository, invitations ports.InvitationRepository, logs ports.SystemLogRepository, audit *SystemLogger, log zerolog.Logger) *AdminService {
	return &AdminService{
		users:       users,
		invitations: invitations,
		logs:        logs,
		audit:       audit,
		log:         log,
		now:         time.Now,
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) ResetUserPassword(ctx context.Context, p domain.Principal, userID string, meta domain.RequestMeta) (string, *domain.User, error) {
	if !p.IsAdmin() {
		return "", nil, domain.ErrForbidden
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	password, err := newTempPassword()
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return "", nil, fmt.Errorf("update password: %w", err)
	}

	s.audit.UserManagement(ctx, "password_reset", p, map[string]any{
		"targetUserId":    user.ID,
		"targetUserEmail": user.Email,
	}, meta)
	return password, user, nil
}

func (s *AdminService) Logs(ctx context.Context, filter ports.SystemLogFilter) ([]*domain.SystemLog, int64, error) {
	filter.Limit = clampLimit(filter.Limit, domain.DefaultLogLimit, domain.MaxLogLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	logs, total, err := s.logs.Query(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("query system logs: %w", err)
	}
	if logs == nil {
		logs = []*domain.SystemLog{}
	}
	return logs, total, nil
}

func (s *AdminService) Communications(ctx context.Context, limit, offset int) (*ports.CommunicationsReport, error) {
	limit = clampLimit(limit, defaultCommunicationsLimit, domain.MaxLogLimit)
	if offset < 0 {
		offset = 0
	}
	now := s.now().UTC()

	var report ports.CommunicationsReport

	counts, err := s.invitations.Counts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count invitations: %w", err)
	}
	recent, err := s.invitations.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	report.Invitations.InvitationCounts = counts
	report.Invitations.Recent = make([]*ports.InvitationView, 0, len(recent))
	for _, inv := range recent {
		report.Invitations.Recent = append(report.Invitations.Recent, &ports.InvitationView{Invitation: inv, Status: inv.Status(now)})
	}

	if report.Emails, err = s.emailStats(ctx, limit, offset); err != nil {
		return nil, err
	}
	if report.Users, err = s.userStats(ctx, now); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *AdminService) emailStats(ctx context.Context, limit, offset int) (ports.EmailStats, error) {
	var stats ports.EmailStats
	counters := []struct {
		dst    *int64
		filter ports.SystemLogFilter
	}{
		{&stats.TotalSent, ports.SystemLogFilter{ActionSuffix: "_sent"}},
		{&stats.TotalFailed, ports.SystemLogFilter{ActionSuffix: "_failed"}},
		{&stats.InvitationEmails, ports.SystemLogFilter{ActionPrefix: ports.EmailInvitation + "_"}},
		{&stats.TransferEmails, ports.SystemLogFilter{ActionPrefix: ports.EmailTransfer + "_"}},
	}
	for _, c := range counters {
		n, err := s.logs.Count(ctx, c.filter)
		if err != nil {
			return stats, fmt.Errorf("count email logs: %w", err)
		}
		*c.dst = n
	}

	logs, _, err := s.logs.Query(ctx, ports.SystemLogFilter{ActionContains: "_email_", Limit: limit, Offset: offset})
	if err != nil {
		return stats, fmt.Errorf("query email logs: %w", err)
	}
	if logs == nil {
		logs = []*domain.SystemLog{}
	}
	stats.RecentLogs = logs
	return stats, nil
}

func (s *AdminService) userStats(ctx context.Context, now time.Time) (ports.UserStats, error) {
	var stats ports.UserStats
	users, err := s.users.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	emails := make(map[string]string, len(users))
	stats.Total = int64(len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
		switch {
		case u.LastLoginAt == nil:
			stats.NeverLoggedIn++
		case !u.LastLoginAt.Before(startOfDay):
			stats.ActiveToday++
		}
	}

	ok := true
	logins, _, err := s.logs.Query(ctx, ports.SystemLogFilter{
		EventType: domain.EventAuth,
		Action:    "login",
		Success:   &ok,
		Limit:     recentLoginLimit,
	})
	if err != nil {
		return stats, fmt.Errorf("query recent logins: %w", err)
	}
	stats.RecentLogins = make([]ports.RecentLogin, 0, len(logins))
	for _, l := range logins {
		stats.RecentLogins = append(stats.RecentLogins, ports.RecentLogin{
			Timestamp: l.Timestamp,
			UserID:    l.UserID,
			UserName:  l.UserName,
			Email:     emails[l.UserID],
		})
	}
	return stats, nil
}
