package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// successResponse is the envelope for every 2xx JSON body.
type successResponse struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Pagination *ports.Pagination `json:"pagination,omitempty"`
}

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Success bool `json:"success" example:"false"`
	Error   struct {
		Code    string              `json:"code" example:"VALIDATION_ERROR"`
		Message string              `json:"message"`
		Details []domain.FieldIssue `json:"details,omitempty"`
	} `json:"error"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, successResponse{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, successResponse{Success: true, Data: data, Message: msg})
}

func respondPage(c echo.Context, data any, p ports.Pagination) error {
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: data, Pagination: &p})
}

// pageParams reads ?page and ?perPage, clamped to the API limits.
func pageParams(c echo.Context) (page, perPage int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage = queryInt(c, "perPage", domain.DefaultPageSize)
	switch {
	case perPage < 1:
		perPage = domain.DefaultPageSize
	case perPage > domain.MaxPageSize:
		perPage = domain.MaxPageSize
	}
	return page, perPage
}
