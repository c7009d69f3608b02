package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const defaultCommunicationsLimit = 50

type adminPasswordResetRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type adminPasswordResetResponse struct {
	TemporaryPassword string       `json:"temporaryPassword"`
	User              *domain.User `json:"user"`
}

type logsPagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

type logsResponse struct {
	Logs       []*domain.SystemLog `json:"logs"`
	Pagination logsPagination      `json:"pagination"`
}

type communicationsResponse struct {
	*ports.CommunicationsReport
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"pagination"`
}

// AdminHandler serves the admin dashboard. Routes are mounted behind RBAC(admin).
type AdminHandler struct {
	service ports.AdminService
}

func NewAdminHandler(service ports.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Users handles GET /api/admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse{data=[]domain.User}
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) Users(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return respond(c, http.StatusOK, users)
}

// ResetPassword handles POST /api/admin/password-reset.
//
// @Summary      Assign a temporary password
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      adminPasswordResetRequest  true  "Target user"
// @Success      200   {object}  successResponse{data=adminPasswordResetResponse}
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/password-reset [post]
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req adminPasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	password, user, err := h.service.ResetUserPassword(c.Request().Context(), p, req.UserID, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, adminPasswordResetResponse{TemporaryPassword: password, User: user},
		"Password reset successfully. Share the temporary password with the user securely.")
}

// Logs handles GET /api/admin/logs.
//
// @Summary      Query system logs
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        eventType  query     string  false  "submission, pdf_generation, admin_approval, auth_event, user_management"
// @Param        userId     query     string  false  "Actor"
// @Param        limit      query     int     false  "Default 100, max 500"
// @Param        offset     query     int     false  "Default 0"
// @Success      200        {object}  successResponse{data=logsResponse}
// @Failure      400        {object}  errorResponse
// @Router       /api/admin/logs [get]
func (h *AdminHandler) Logs(c echo.Context) error {
	eventType := domain.EventType(c.QueryParam("eventType"))
	if eventType != "" && !eventType.Valid() {
		return domain.NewValidationError("Invalid query parameters", domain.FieldIssue{Field: "eventType", Message: "unknown event type"})
	}

	limit := queryInt(c, "limit", domain.DefaultLogLimit)
	switch {
	case limit < 1:
		limit = domain.DefaultLogLimit
	case limit > domain.MaxLogLimit:
		limit = domain.MaxLogLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.service.Logs(c.Request().Context(), ports.SystemLogFilter{
		EventType: eventType,
		UserID:    c.QueryParam("userId"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, logsResponse{
		Logs: logs,
		Pagination: logsPagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+len(logs)) < total,
		},
	})
}

// Communications handles GET /api/admin/communications.
//
// @Summary      Invitation, email and login statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Default 50"
// @Param        offset  query     int  false  "Default 0"
// @Success      200     {object}  successResponse{data=communicationsResponse}
// @Router       /api/admin/communications [get]
func (h *AdminHandler) Communications(c echo.Context) error {
	limit := queryInt(c, "limit", defaultCommunicationsLimit)
	if limit < 1 || limit > domain.MaxLogLimit {
		limit = defaultCommunicationsLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	report, err := h.service.Communications(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	resp := communicationsResponse{CommunicationsReport: report}
	resp.Pagination.Limit = limit
	resp.Pagination.Offset = offset
	return respond(c, http.StatusOK, resp)
}
