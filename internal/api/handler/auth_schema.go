package handler

import (
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"  validate:"required,max=200"`
	Role  string `json:"role"  validate:"omitempty,oneof=admin technician"`
}

type inviteResponse struct {
	Invitation *domain.Invitation `json:"invitation"`
	InviteURL  string             `json:"inviteUrl"`
}

type invitationDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type completeSignupRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"     validate:"omitempty,max=200"`
}

type firstAdminRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required,max=200"`
	Password string `json:"password" validate:"required"`
}

type canCreateFirstAdminResponse struct {
	CanCreate bool `json:"canCreate"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required"`
}
