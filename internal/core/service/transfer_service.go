package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
	"github.com/partpulse/partpulse/internal/core/sanitize"
)

// TransferService runs the internal transfer submission pipeline:
// save, render, store, notify and audit.
type TransferService struct {
	repo     ports.TransferRepository
	docs     *DocumentService
	notifier *Notifier
	audit    *SystemLogger
	cache    ports.Cache
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransferService wires the pipeline. cache may be nil.
func NewTransferService(repo ports.TransferRepository, docs *DocumentService, notifier *Notifier, audit *SystemLogger, cache ports.Cache, log zerolog.Logger) *TransferService {
	return &TransferService{
		repo:     repo,
		docs:     docs,
		notifier: notifier,
		audit:    audit,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

func (s *TransferService) Create(ctx context.Context, p domain.Principal, in ports.CreateTransferInput, meta domain.RequestMeta) (*domain.InternalTransfer, error) {
	sanitize.Value(&in)

	ssid := strings.TrimSpace(in.SSID)
	if ssid == "" {
		ssid = strings.TrimSpace(in.PSID)
	}
	if ssid == "" {
		return nil, domain.NewValidationError("Validation failed", domain.FieldIssue{Field: "ssid", Message: "Either SSID or PSID must be provided"})
	}
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("Validation failed", domain.FieldIssue{Field: "items", Message: "At least one item is required"})
	}

	now := s.now().UTC()
	t := &domain.InternalTransfer{
		ID:              uuid.NewString(),
		Date:            in.Date,
		SSID:            ssid,
		SiteName:        in.SiteName,
		PONumber:        in.PONumber,
		TechnicianName:  in.TechnicianName,
		TechnicianID:    p.UserID,
		ClientName:      in.ClientName,
		ClientDate:      in.ClientDate,
		ClientSignature: in.ClientSignature,
		Status:          domain.TransferPending,
		Technician:      &domain.UserSummary{ID: p.UserID, Name: p.Name, Email: p.Email},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range in.Items {
		t.Items = append(t.Items, domain.InternalTransferItem{
			ID:          uuid.NewString(),
			TransferID:  t.ID,
			Qty:         it.Qty,
			PartNo:      it.PartNo,
			Description: it.Description,
		})
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	metrics.SubmissionsTotal.WithLabelValues(entityTransfer).Inc()
	s.audit.Submission(ctx, p, entityTransfer, t.ID, map[string]any{
		"ssid":      t.SSID,
		"siteName":  t.SiteName,
		"itemCount": len(t.Items),
	}, meta)
	s.invalidateReports(ctx)

	key := s.docs.storeTransfer(ctx, p, t, meta)
	s.notifier.TransferReceipt(ctx, t, p, key)
	return t, nil
}

func (s *TransferService) Get(ctx context.Context, id string) (*domain.InternalTransfer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *TransferService) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.InternalTransfer, int64, error) {
	filter.Limit = clampLimit(filter.Limit, domain.DefaultPageSize, domain.MaxPageSize)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a transfer through its lifecycle. Completing a transfer
// applies the admin stamp; cancelling counts as a rejection.
func (s *TransferService) UpdateStatus(ctx context.Context, p domain.Principal, id string, status domain.TransferStatus, meta domain.RequestMeta) (*domain.InternalTransfer, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := t.Status
	now := s.now().UTC()
	t.Status = status
	t.UpdatedAt = now
	if status == domain.TransferCompleted {
		t.AdminStamp = true
		t.ApprovedBy = p.UserID
		t.ApprovedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, t); err != nil {
		return nil, fmt.Errorf("update transfer status: %w", err)
	}
	s.invalidateReports(ctx)

	details := map[string]any{"previousStatus": previous, "status": status}
	switch status {
	case domain.TransferCompleted:
		metrics.ApprovalsTotal.WithLabelValues(entityTransfer, "approved").Inc()
		s.audit.AdminApproval(ctx, p, entityTransfer, t.ID, true, details, meta)
	case domain.TransferCancelled:
		metrics.ApprovalsTotal.WithLabelValues(entityTransfer, "rejected").Inc()
		s.audit.AdminApproval(ctx, p, entityTransfer, t.ID, false, details, meta)
	default:
		details["entityType"] = entityTransfer
		details["entityId"] = t.ID
		s.audit.Record(ctx, LogEntry{
			EventType: domain.EventAdminApproval,
			Action:    entityTransfer + "_status_updated",
			Actor:     p,
			Details:   details,
			Meta:      meta,
		})
	}

	s.docs.storeTransfer(ctx, p, t, meta)
	return t, nil
}

func (s *TransferService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, reportCacheKeyPrefix+reportTransfers); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate transfer report cache")
	}
}

func clampLimit(v, def, max int) int {
	switch {
	case v <= 0:
		return def
	case v > max:
		return max
	default:
		return v
	}
}
