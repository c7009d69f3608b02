package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const passwordResetRequestedMessage = "If an account exists with this email, a password reset link has been sent"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  successResponse{data=loginResponse}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Logout records the end of a session. Tokens are stateless; clients discard them.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	h.authService.Logout(c.Request().Context(), p, middleware.RequestMeta(c))
	return respondMessage(c, http.StatusOK, nil, "Logged out successfully")
}

// Me returns the current user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse{data=domain.User}
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.authService.Me(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// Invite creates an invitation and emails the signup link.
//
// @Summary      Invite a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      inviteRequest  true  "Invitee"
// @Success      201   {object}  successResponse{data=inviteResponse}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/auth/invite [post]
func (h *AuthHandler) Invite(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req inviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Invite(c.Request().Context(), p, ports.InviteInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	}, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, inviteResponse{Invitation: res.Invitation, InviteURL: res.InviteURL}, "Invitation sent successfully")
}

// VerifyInvitation checks a signup token before the signup form is shown.
//
// @Summary      Verify invitation token
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Invitation token"
// @Success      200    {object}  successResponse{data=invitationDetails}
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /api/auth/verify-invitation [get]
func (h *AuthHandler) VerifyInvitation(c echo.Context) error {
	inv, err := h.authService.VerifyInvitation(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, invitationDetails{Email: inv.Email, Name: inv.Name, Role: inv.Role})
}

// CompleteSignup redeems an invitation and creates the account.
//
// @Summary      Complete signup
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      completeSignupRequest  true  "Signup"
// @Success      201   {object}  successResponse{data=domain.User}
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/auth/complete-signup [post]
func (h *AuthHandler) CompleteSignup(c echo.Context) error {
	var req completeSignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.CompleteSignup(c.Request().Context(), ports.CompleteSignupInput{
		Token:    req.Token,
		Password: req.Password,
		Name:     req.Name,
	}, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, user, "Account created successfully")
}

// CanCreateFirstAdmin reports whether the bootstrap admin form is available.
//
// @Summary      First admin availability
// @Tags         auth
// @Produce      json
// @Success      200  {object}  successResponse{data=canCreateFirstAdminResponse}
// @Router       /api/auth/can-create-first-admin [get]
func (h *AuthHandler) CanCreateFirstAdmin(c echo.Context) error {
	ok, err := h.authService.CanCreateFirstAdmin(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, canCreateFirstAdminResponse{CanCreate: ok})
}

// CreateFirstAdmin bootstraps the first administrator account.
//
// @Summary      Create first admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      firstAdminRequest  true  "Admin account"
// @Success      201   {object}  successResponse{data=domain.User}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/auth/create-first-admin [post]
func (h *AuthHandler) CreateFirstAdmin(c echo.Context) error {
	var req firstAdminRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.CreateFirstAdmin(c.Request().Context(), ports.FirstAdminInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	}, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, user, "Admin account created successfully")
}

// RequestPasswordReset always answers with the same message.
//
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      passwordResetRequest  true  "Account email"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email, middleware.RequestMeta(c)); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, nil, passwordResetRequestedMessage)
}

// ResetPassword sets a new password from a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password, middleware.RequestMeta(c)); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, nil, "Password has been reset successfully")
}
