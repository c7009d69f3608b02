package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// TransferHandler handles HTTP requests for internal transfers.
type TransferHandler struct {
	service ports.TransferService
}

func NewTransferHandler(service ports.TransferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Create handles POST /api/internal-transfers.
//
// @Summary      Submit an internal transfer
// @Tags         internal-transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTransferRequest  true  "Transfer form"
// @Success      201   {object}  successResponse{data=domain.InternalTransfer}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/internal-transfers [post]
func (h *TransferHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createTransferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	t, err := h.service.Create(c.Request().Context(), p, req.toInput(), middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, t, "Internal transfer submitted successfully")
}

// List handles GET /api/internal-transfers.
//
// @Summary      List internal transfers
// @Tags         internal-transfers
// @Produce      json
// @Security     BearerAuth
// @Param        status   query     string  false  "Status filter"
// @Param        page     query     int     false  "Page (default 1)"
// @Param        perPage  query     int     false  "Page size (default 10, max 100)"
// @Success      200      {object}  successResponse{data=[]domain.InternalTransfer}
// @Failure      401      {object}  errorResponse
// @Router       /api/internal-transfers [get]
func (h *TransferHandler) List(c echo.Context) error {
	page, perPage := pageParams(c)
	filter := ports.RecordFilter{
		Status: c.QueryParam("status"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}

	transfers, total, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if transfers == nil {
		transfers = []*domain.InternalTransfer{}
	}
	return respondPage(c, transfers, ports.NewPagination(page, perPage, total))
}

// Get handles GET /api/internal-transfers/:id.
//
// @Summary      Get an internal transfer
// @Tags         internal-transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transfer ID"
// @Success      200  {object}  successResponse{data=domain.InternalTransfer}
// @Failure      404  {object}  errorResponse
// @Router       /api/internal-transfers/{id} [get]
func (h *TransferHandler) Get(c echo.Context) error {
	t, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, t)
}

// UpdateStatus handles PATCH /api/internal-transfers/:id/status.
//
// @Summary      Update transfer status
// @Tags         internal-transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                       true  "Transfer ID"
// @Param        body  body      updateTransferStatusRequest  true  "New status"
// @Success      200   {object}  successResponse{data=domain.InternalTransfer}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/internal-transfers/{id}/status [patch]
func (h *TransferHandler) UpdateStatus(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req updateTransferStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	t, err := h.service.UpdateStatus(c.Request().Context(), p, c.Param("id"), domain.TransferStatus(req.Status), middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, t, "Transfer status updated")
}
