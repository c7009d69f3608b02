package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

// LoginResult is returned after a successful credential check.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type InviteInput struct {
	Email string
	Name  string
	Role  string
}

type InviteResult struct {
	Invitation *domain.Invitation
	InviteURL  string
}

type CompleteSignupInput struct {
	Token    string
	Password string
	Name     string
}

type FirstAdminInput struct {
	Email    string
	Name     string
	Password string
}

// AuthService covers sessions, invitations and password recovery.
type AuthService interface {
	Login(ctx context.Context, email, password string, meta domain.RequestMeta) (*LoginResult, error)
	Logout(ctx context.Context, p domain.Principal, meta domain.RequestMeta)
	Me(ctx context.Context, userID string) (*domain.User, error)

	Invite(ctx context.Context, p domain.Principal, in InviteInput, meta domain.RequestMeta) (*InviteResult, error)
	VerifyInvitation(ctx context.Context, token string) (*domain.Invitation, error)
	CompleteSignup(ctx context.Context, in CompleteSignupInput, meta domain.RequestMeta) (*domain.User, error)

	CanCreateFirstAdmin(ctx context.Context) (bool, error)
	CreateFirstAdmin(ctx context.Context, in FirstAdminInput, meta domain.RequestMeta) (*domain.User, error)

	RequestPasswordReset(ctx context.Context, email string, meta domain.RequestMeta) error
	ResetPassword(ctx context.Context, token, password string, meta domain.RequestMeta) error
}
