package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// ClaimHandler handles HTTP requests for warranty claims.
type ClaimHandler struct {
	service ports.ClaimService
}

func NewClaimHandler(service ports.ClaimService) *ClaimHandler {
	return &ClaimHandler{service: service}
}

// Create handles POST /api/warranty-claims.
//
// @Summary      Submit a warranty claim
// @Tags         warranty-claims
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createClaimRequest  true  "Claim form"
// @Success      201   {object}  successResponse{data=domain.WarrantyClaim}
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/warranty-claims [post]
func (h *ClaimHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createClaimRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claim, err := h.service.Create(c.Request().Context(), p, req.toInput(), middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusCreated, claim, "Warranty claim submitted successfully")
}

// List handles GET /api/warranty-claims.
//
// @Summary      List warranty claims
// @Tags         warranty-claims
// @Produce      json
// @Security     BearerAuth
// @Param        status   query     string  false  "Status filter"
// @Param        page     query     int     false  "Page (default 1)"
// @Param        perPage  query     int     false  "Page size (default 10, max 100)"
// @Success      200      {object}  successResponse{data=[]domain.WarrantyClaim}
// @Router       /api/warranty-claims [get]
func (h *ClaimHandler) List(c echo.Context) error {
	page, perPage := pageParams(c)
	claims, total, err := h.service.List(c.Request().Context(), ports.RecordFilter{
		Status: c.QueryParam("status"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return err
	}
	if claims == nil {
		claims = []*domain.WarrantyClaim{}
	}
	return respondPage(c, claims, ports.NewPagination(page, perPage, total))
}

// Get handles GET /api/warranty-claims/:id.
//
// @Summary      Get a warranty claim
// @Tags         warranty-claims
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Claim ID"
// @Success      200  {object}  successResponse{data=domain.WarrantyClaim}
// @Failure      404  {object}  errorResponse
// @Router       /api/warranty-claims/{id} [get]
func (h *ClaimHandler) Get(c echo.Context) error {
	claim, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, claim)
}

// Review handles PATCH /api/warranty-claims/:id/review.
//
// @Summary      Approve or reject a claim
// @Tags         warranty-claims
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Claim ID"
// @Param        body  body      reviewClaimRequest  true  "Decision"
// @Success      200   {object}  successResponse{data=domain.WarrantyClaim}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/warranty-claims/{id}/review [patch]
func (h *ClaimHandler) Review(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req reviewClaimRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claim, err := h.service.Review(c.Request().Context(), p, c.Param("id"), ports.ReviewClaimInput{
		Approve:        req.Decision == "approve",
		AdminSignature: req.AdminSignature,
	}, middleware.RequestMeta(c))
	if err != nil {
		return err
	}
	msg := "Warranty claim rejected"
	if claim.Status == domain.ClaimApproved {
		msg = "Warranty claim approved"
	}
	return respondMessage(c, http.StatusOK, claim, msg)
}
