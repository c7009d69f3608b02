package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
	"github.com/partpulse/partpulse/internal/core/sanitize"
)

// ClaimService mirrors TransferService for warranty claims.
type ClaimService struct {
	repo     ports.ClaimRepository
	docs     *DocumentService
	notifier *Notifier
	audit    *SystemLogger
	cache    ports.Cache
	log      zerolog.Logger
	now      func() time.Time
}

func NewClaimService(repo ports.ClaimRepository, docs *DocumentService, notifier *Notifier, audit *SystemLogger, cache ports.Cache, log zerolog.Logger) *ClaimService {
	return &ClaimService{
		repo:     repo,
		docs:     docs,
		notifier: notifier,
		audit:    audit,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

func (s *ClaimService) Create(ctx context.Context, p domain.Principal, in ports.CreateClaimInput, meta domain.RequestMeta) (*domain.WarrantyClaim, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("Validation failed", domain.FieldIssue{Field: "items", Message: "At least one item is required"})
	}
	sanitize.Value(&in)

	now := s.now().UTC()
	c := &domain.WarrantyClaim{
		ID:                  uuid.NewString(),
		Date:                in.Date,
		ChillerModel:        in.ChillerModel,
		ChillerSerial:       in.ChillerSerial,
		SSIDJobNumber:       in.SSIDJobNumber,
		BuildingName:        in.BuildingName,
		SiteName:            in.SiteName,
		TechnicianName:      in.TechnicianName,
		TechnicianID:        p.UserID,
		Comments:            in.Comments,
		CoveredByWarranty:   in.CoveredByWarranty,
		TechnicianSignature: in.TechnicianSignature,
		Status:              domain.ClaimSubmitted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for _, it := range in.Items {
		c.Items = append(c.Items, domain.WarrantyItem{
			ID:                 uuid.NewString(),
			ClaimID:            c.ID,
			PartNo:             it.PartNo,
			Quantity:           it.Quantity,
			FailedPartSerial:   it.FailedPartSerial,
			ReplacedPartSerial: it.ReplacedPartSerial,
			DateOfFailure:      it.DateOfFailure,
			DateOfRepair:       it.DateOfRepair,
		})
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	metrics.SubmissionsTotal.WithLabelValues(entityClaim).Inc()
	s.audit.Submission(ctx, p, entityClaim, c.ID, map[string]any{
		"chillerModel":      c.ChillerModel,
		"chillerSerial":     c.ChillerSerial,
		"coveredByWarranty": c.CoveredByWarranty,
		"itemCount":         len(c.Items),
	}, meta)
	s.invalidateReports(ctx)

	key := s.docs.storeClaim(ctx, p, c, meta)
	s.notifier.ClaimReceipt(ctx, c, p, key)
	return c, nil
}

func (s *ClaimService) Get(ctx context.Context, id string) (*domain.WarrantyClaim, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ClaimService) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.WarrantyClaim, int64, error) {
	filter.Limit = clampLimit(filter.Limit, domain.DefaultPageSize, domain.MaxPageSize)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Review records an admin decision and regenerates the PDF so the stamp shows.
func (s *ClaimService) Review(ctx context.Context, p domain.Principal, id string, in ports.ReviewClaimInput, meta domain.RequestMeta) (*domain.WarrantyClaim, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	previous := c.Status
	c.AdminDate = &now
	c.UpdatedAt = now
	if sig := sanitize.String(in.AdminSignature); sig != "" {
		c.AdminSignature = sig
	}
	decision := "rejected"
	if in.Approve {
		decision = "approved"
		c.Status = domain.ClaimApproved
		c.AdminProcessedStamp = true
	} else {
		c.Status = domain.ClaimRejected
		c.AdminProcessedStamp = false
	}

	if err := s.repo.UpdateReview(ctx, c); err != nil {
		return nil, fmt.Errorf("update claim review: %w", err)
	}
	s.invalidateReports(ctx)

	metrics.ApprovalsTotal.WithLabelValues(entityClaim, decision).Inc()
	s.audit.AdminApproval(ctx, p, entityClaim, c.ID, in.Approve, map[string]any{
		"previousStatus": previous,
		"status":         c.Status,
	}, meta)

	s.docs.storeClaim(ctx, p, c, meta)
	return c, nil
}

func (s *ClaimService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, reportCacheKeyPrefix+reportClaims); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate claim report cache")
	}
}
