package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	reportCacheKeyPrefix = "reports:"
	reportTransfers      = "transfers"
	reportClaims         = "claims"
	reportCacheTTL       = 5 * time.Minute
)

// ReportService serves paginated record reports through an optional cache.
type ReportService struct {
	transfers ports.TransferRepository
	claims    ports.ClaimRepository
	cache     ports.Cache
	log       zerolog.Logger
}

// NewReportService builds the service. cache may be nil.
func NewReportService(transfers ports.TransferRepository, claims ports.ClaimRepository, cache ports.Cache, log zerolog.Logger) *ReportService {
	return &ReportService{transfers: transfers, claims: claims, cache: cache, log: log}
}

func (s *ReportService) Transfers(ctx context.Context, q ports.ReportQuery) (*ports.TransferReport, error) {
	q = normalizeReportQuery(q)
	key := reportCacheKey(reportTransfers, q)

	var cached ports.TransferReport
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	items, total, err := s.transfers.List(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if items == nil {
		items = []*domain.InternalTransfer{}
	}
	report := &ports.TransferReport{Items: items, Pagination: ports.NewPagination(q.Page, q.PerPage, total)}
	s.store(ctx, key, report)
	return report, nil
}

func (s *ReportService) Claims(ctx context.Context, q ports.ReportQuery) (*ports.ClaimReport, error) {
	q = normalizeReportQuery(q)
	key := reportCacheKey(reportClaims, q)

	var cached ports.ClaimReport
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	items, total, err := s.claims.List(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	if items == nil {
		items = []*domain.WarrantyClaim{}
	}
	report := &ports.ClaimReport{Items: items, Pagination: ports.NewPagination(q.Page, q.PerPage, total)}
	s.store(ctx, key, report)
	return report, nil
}

func (s *ReportService) lookup(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		metrics.ReportCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		return false
	}
	if hit {
		metrics.ReportCacheTotal.WithLabelValues("hit").Inc()
		return true
	}
	metrics.ReportCacheTotal.WithLabelValues("miss").Inc()
	return false
}

func (s *ReportService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, reportCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func normalizeReportQuery(q ports.ReportQuery) ports.ReportQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	q.PerPage = clampLimit(q.PerPage, domain.DefaultPageSize, domain.MaxPageSize)
	switch q.Filter.SortBy {
	case "createdAt", "technician", "status":
	default:
		q.Filter.SortBy = "createdAt"
	}
	if q.Filter.SortOrder != "asc" {
		q.Filter.SortOrder = "desc"
	}
	q.Filter.Limit = q.PerPage
	q.Filter.Offset = (q.Page - 1) * q.PerPage
	return q
}

func reportCacheKey(kind string, q ports.ReportQuery) string {
	f := q.Filter
	return fmt.Sprintf("%s%s:p=%d:n=%d:s=%s:t=%s:from=%s:to=%s:sort=%s:%s",
		reportCacheKeyPrefix, kind, q.Page, q.PerPage, f.Status, f.Technician,
		formatBound(f.From), formatBound(f.To), f.SortBy, f.SortOrder)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
