package ports

import (
	"context"

	"github.com/partpulse/partpulse/internal/core/domain"
)

type Pagination struct {
	Page            int   `json:"page"`
	PerPage         int   `json:"perPage"`
	Total           int64 `json:"total"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPagination describes page of perPage rows out of total.
func NewPagination(page, perPage int, total int64) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Pagination{
		Page:            page,
		PerPage:         perPage,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// ReportQuery is the parsed report query string.
type ReportQuery struct {
	Page    int
	PerPage int
	Filter  RecordFilter
}

type TransferReport struct {
	Items      []*domain.InternalTransfer `json:"data"`
	Pagination Pagination                 `json:"pagination"`
}

type ClaimReport struct {
	Items      []*domain.WarrantyClaim `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

type ReportService interface {
	Transfers(ctx context.Context, q ReportQuery) (*TransferReport, error)
	Claims(ctx context.Context, q ReportQuery) (*ClaimReport, error)
}
