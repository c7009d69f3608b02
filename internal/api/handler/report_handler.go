package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	reportTransfers = "transfers"
	reportClaims    = "claims"
)

type reportIndex struct {
	AvailableReports []string `json:"availableReports"`
	Message          string   `json:"message"`
}

// ReportHandler serves paginated, filtered record reports.
type ReportHandler struct {
	service ports.ReportService
}

func NewReportHandler(service ports.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Index handles GET /api/reports. With ?type it redirects to the specific
// report, keeping the query string.
//
// @Summary      Available reports
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  false  "transfers or claims"
// @Success      200   {object}  successResponse{data=reportIndex}
// @Success      302
// @Router       /api/reports [get]
func (h *ReportHandler) Index(c echo.Context) error {
	switch t := c.QueryParam("type"); t {
	case reportTransfers, reportClaims:
		target := "/api/reports/" + t
		if q := c.QueryString(); q != "" {
			target += "?" + q
		}
		return c.Redirect(http.StatusFound, target)
	}
	return respond(c, http.StatusOK, reportIndex{
		AvailableReports: []string{reportTransfers, reportClaims},
		Message:          "Use ?type=transfers or ?type=claims to get specific reports",
	})
}

// Transfers handles GET /api/reports/transfers.
//
// @Summary      Transfer report
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page (default 1)"
// @Param        perPage     query     int     false  "Page size (default 10, max 100)"
// @Param        technician  query     string  false  "Technician name substring"
// @Param        status      query     string  false  "Status"
// @Param        startDate   query     string  false  "Created on or after (YYYY-MM-DD)"
// @Param        endDate     query     string  false  "Created on or before (YYYY-MM-DD, inclusive)"
// @Param        sortBy      query     string  false  "createdAt, technician or status"
// @Param        sortOrder   query     string  false  "asc or desc"
// @Success      200         {object}  successResponse{data=[]domain.InternalTransfer}
// @Failure      400         {object}  errorResponse
// @Router       /api/reports/transfers [get]
func (h *ReportHandler) Transfers(c echo.Context) error {
	q, err := reportQuery(c)
	if err != nil {
		return err
	}
	report, err := h.service.Transfers(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return respondPage(c, report.Items, report.Pagination)
}

// Claims handles GET /api/reports/claims.
//
// @Summary      Warranty claim report
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page (default 1)"
// @Param        perPage     query     int     false  "Page size (default 10, max 100)"
// @Param        technician  query     string  false  "Technician name substring"
// @Param        status      query     string  false  "Status"
// @Param        startDate   query     string  false  "Created on or after (YYYY-MM-DD)"
// @Param        endDate     query     string  false  "Created on or before (YYYY-MM-DD, inclusive)"
// @Param        sortBy      query     string  false  "createdAt, technician or status"
// @Param        sortOrder   query     string  false  "asc or desc"
// @Success      200         {object}  successResponse{data=[]domain.WarrantyClaim}
// @Failure      400         {object}  errorResponse
// @Router       /api/reports/claims [get]
func (h *ReportHandler) Claims(c echo.Context) error {
	q, err := reportQuery(c)
	if err != nil {
		return err
	}
	report, err := h.service.Claims(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return respondPage(c, report.Items, report.Pagination)
}

func reportQuery(c echo.Context) (ports.ReportQuery, error) {
	filter, err := recordFilter(c.QueryParam("status"), c.QueryParam("technician"), c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return ports.ReportQuery{}, err
	}
	filter.SortBy = c.QueryParam("sortBy")
	filter.SortOrder = c.QueryParam("sortOrder")

	page, perPage := pageParams(c)
	return ports.ReportQuery{Page: page, PerPage: perPage, Filter: filter}, nil
}
