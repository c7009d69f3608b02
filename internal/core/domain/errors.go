package domain

import (
	"errors"
	"strings"
)

var (
	ErrTransferNotFound   = errors.New("internal transfer not found")
	ErrClaimNotFound      = errors.New("warranty claim not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrAdminExists        = errors.New("an admin account already exists")
	ErrInvalidStatus      = errors.New("invalid status")

	ErrInvitationNotFound = errors.New("invalid invitation token")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationAccepted = errors.New("invitation has already been used")

	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrWeakPassword      = errors.New("password does not meet requirements")

	ErrTemplateNotFound = errors.New("pdf template not found")
)

// FieldIssue describes a single invalid request field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request body fails schema checks.
type ValidationError struct {
	Message string
	Details []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, d.Message)
	}
	return e.Message + ": " + strings.Join(msgs, "; ")
}

// NewValidationError builds a ValidationError from field issues.
func NewValidationError(msg string, issues ...FieldIssue) *ValidationError {
	return &ValidationError{Message: msg, Details: issues}
}
