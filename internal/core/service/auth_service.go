package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
	"github.com/partpulse/partpulse/internal/core/sanitize"
)

// AuthConfig holds the settings AuthService needs from the environment.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	AppURL    string
}

// AuthService implements sessions, invitations and password recovery.
type AuthService struct {
	users       ports.UserRepository
	invitations ports.InvitationRepository
	notifier    *Notifier
	audit       *SystemLogger
	cfg         AuthConfig
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthService(users ports.UserRepository, invitations ports.InvitationRepository, notifier *Notifier, audit *SystemLogger, cfg AuthConfig, log zerolog.Logger) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = domain.SessionTTL
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &AuthService{
		users:       users,
		invitations: invitations,
		notifier:    notifier,
		audit:       audit,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func principalOf(u *domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.RequestMeta) (*ports.LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.audit.Auth(ctx, "login_failed", domain.Principal{Email: email}, map[string]any{"email": email, "reason": "unknown_user"}, domain.ErrInvalidCredentials, meta)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.audit.Auth(ctx, "login_failed", principalOf(user), map[string]any{"email": email, "reason": "bad_password"}, domain.ErrInvalidCredentials, meta)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	token, expiresAt, err := s.issueToken(user, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLoginAt = &now
	}

	s.audit.Auth(ctx, "login", principalOf(user), map[string]any{"email": user.Email, "role": user.Role}, nil, meta)
	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) issueToken(user *domain.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) Logout(ctx context.Context, p domain.Principal, meta domain.RequestMeta) {
	s.audit.Auth(ctx, "logout", p, map[string]any{"email": p.Email}, nil, meta)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) Invite(ctx context.Context, p domain.Principal, in ports.InviteInput, meta domain.RequestMeta) (*ports.InviteResult, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = domain.RoleTechnician
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("Invalid role", domain.FieldIssue{Field: "role", Message: "role must be admin or technician"})
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	raw, hash, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      sanitize.String(strings.TrimSpace(in.Name)),
		Role:      role,
		TokenHash: hash,
		InvitedBy: p.UserID,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	url := s.cfg.AppURL + "/auth/signup?token=" + raw
	s.notifier.Invitation(ctx, inv, p, url)
	s.audit.UserManagement(ctx, "user_invited", p, map[string]any{
		"invitationId": inv.ID,
		"email":        inv.Email,
		"role":         inv.Role,
		"expiresAt":    inv.ExpiresAt,
	}, meta)

	return &ports.InviteResult{Invitation: inv, InviteURL: url}, nil
}

func (s *AuthService) VerifyInvitation(ctx context.Context, token string) (*domain.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewValidationError("Token is required", domain.FieldIssue{Field: "token", Message: "token is required"})
	}
	inv, err := s.invitations.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if inv.IsAccepted() {
		return nil, domain.ErrInvitationAccepted
	}
	if inv.IsExpired(s.now()) {
		return nil, domain.ErrInvitationExpired
	}
	return inv, nil
}

func (s *AuthService) CompleteSignup(ctx context.Context, in ports.CompleteSignupInput, meta domain.RequestMeta) (*domain.User, error) {
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	inv, err := s.VerifyInvitation(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	name := sanitize.String(strings.TrimSpace(in.Name))
	if name == "" {
		name = inv.Name
	}
	user, err := s.createUser(ctx, inv.Email, name, inv.Role, in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.invitations.MarkAccepted(ctx, inv.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	s.audit.UserManagement(ctx, "user_signup_completed", principalOf(user), map[string]any{
		"invitationId": inv.ID,
		"email":        user.Email,
		"role":         user.Role,
	}, meta)
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, name, role, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	return s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *AuthService) CanCreateFirstAdmin(ctx context.Context) (bool, error) {
	n, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n == 0, nil
}

func (s *AuthService) CreateFirstAdmin(ctx context.Context, in ports.FirstAdminInput, meta domain.RequestMeta) (*domain.User, error) {
	ok, err := s.CanCreateFirstAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAdminExists
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, normalizeEmail(in.Email), sanitize.String(strings.TrimSpace(in.Name)), domain.RoleAdmin, in.Password)
	if err != nil {
		return nil, err
	}
	s.audit.UserManagement(ctx, "first_admin_created", principalOf(user), map[string]any{"email": user.Email}, meta)
	return user, nil
}

// RequestPasswordReset never reports whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, meta domain.RequestMeta) error {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error().Err(err).Msg("password reset lookup failed")
		}
		return nil
	}

	raw, hash, err := newToken()
	if err != nil {
		s.log.Error().Err(err).Msg("password reset token generation failed")
		return nil
	}
	expiresAt := s.now().UTC().Add(domain.PasswordResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to store reset token")
		return nil
	}

	s.notifier.PasswordReset(ctx, user, s.cfg.AppURL+"/auth/reset-password?token="+raw)
	s.audit.Auth(ctx, "password_reset_requested", principalOf(user), map[string]any{
		"email":     user.Email,
		"expiresAt": expiresAt,
	}, nil, meta)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string, meta domain.RequestMeta) error {
	if err := domain.ValidatePassword(password); err != nil {
		return err
	}
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidResetToken
	}

	user, err := s.users.FindByResetTokenHash(ctx, hashToken(token), s.now().UTC())
	if errors.Is(err, domain.ErrUserNotFound) {
		s.audit.Auth(ctx, "password_reset_failed", domain.Principal{}, map[string]any{"reason": "invalid_or_expired_token"}, domain.ErrInvalidResetToken, meta)
		return domain.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.audit.Auth(ctx, "password_reset_completed", principalOf(user), map[string]any{"email": user.Email}, nil, meta)
	return nil
}
