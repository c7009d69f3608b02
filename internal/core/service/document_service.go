package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	entityTransfer = "internal_transfer"
	entityClaim    = "warranty_claim"

	transferPDFPrefix = "pdfs/internal-transfers/"
	claimPDFPrefix    = "pdfs/warranty-claims/"
	pdfContentType    = "application/pdf"
)

func transferPDFKey(id string) string { return transferPDFPrefix + "transfer-" + id + ".pdf" }
func claimPDFKey(id string) string    { return claimPDFPrefix + "claim-" + id + ".pdf" }

// DocumentService renders record PDFs and keeps the stored copies current.
type DocumentService struct {
	transfers ports.TransferRepository
	claims    ports.ClaimRepository
	renderer  ports.PDFRenderer
	storage   ports.FileStorage
	audit     *SystemLogger
	log       zerolog.Logger
}

func NewDocumentService(transfers ports.TransferRepository, claims ports.ClaimRepository, renderer ports.PDFRenderer, storage ports.FileStorage, audit *SystemLogger, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		transfers: transfers,
		claims:    claims,
		renderer:  renderer,
		storage:   storage,
		audit:     audit,
		log:       log,
	}
}

// storeTransfer renders t, saves it and records the path. Failures are logged
// and reported as an empty key.
func (s *DocumentService) storeTransfer(ctx context.Context, p domain.Principal, t *domain.InternalTransfer, meta domain.RequestMeta) string {
	key := transferPDFKey(t.ID)
	err := s.store(ctx, key, func() ([]byte, error) { return s.renderer.Transfer(ctx, t) })
	if err == nil {
		err = s.transfers.UpdatePDFPath(ctx, t.ID, key)
	}
	s.audit.PDFGeneration(ctx, p, entityTransfer, t.ID, keyIfOK(key, err), err, meta)
	if err != nil {
		s.log.Error().Err(err).Str("transfer_id", t.ID).Msg("transfer pdf generation failed")
		return ""
	}
	t.PDFPath = key
	return key
}

func (s *DocumentService) storeClaim(ctx context.Context, p domain.Principal, c *domain.WarrantyClaim, meta domain.RequestMeta) string {
	key := claimPDFKey(c.ID)
	err := s.store(ctx, key, func() ([]byte, error) { return s.renderer.Claim(ctx, c) })
	if err == nil {
		err = s.claims.UpdatePDFPath(ctx, c.ID, key)
	}
	s.audit.PDFGeneration(ctx, p, entityClaim, c.ID, keyIfOK(key, err), err, meta)
	if err != nil {
		s.log.Error().Err(err).Str("claim_id", c.ID).Msg("claim pdf generation failed")
		return ""
	}
	c.PDFPath = key
	return key
}

func keyIfOK(key string, err error) string {
	if err != nil {
		return ""
	}
	return key
}

func (s *DocumentService) store(ctx context.Context, key string, render func() ([]byte, error)) error {
	data, err := render()
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if _, err := s.storage.Save(ctx, key, data, pdfContentType); err != nil {
		return fmt.Errorf("store pdf: %w", err)
	}
	return nil
}

func (s *DocumentService) Render(ctx context.Context, kind, id string, p domain.Principal, meta domain.RequestMeta) (*ports.Document, error) {
	switch kind {
	case ports.DocumentTransfer:
		t, err := s.transfers.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		data, err := s.renderer.Transfer(ctx, t)
		s.audit.PDFGeneration(ctx, p, entityTransfer, t.ID, "", err, meta)
		if err != nil {
			return nil, fmt.Errorf("render transfer pdf: %w", err)
		}
		return &ports.Document{Filename: "transfer-" + t.ID + ".pdf", Data: data}, nil
	case ports.DocumentClaim:
		c, err := s.claims.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		data, err := s.renderer.Claim(ctx, c)
		s.audit.PDFGeneration(ctx, p, entityClaim, c.ID, "", err, meta)
		if err != nil {
			return nil, fmt.Errorf("render claim pdf: %w", err)
		}
		return &ports.Document{Filename: "claim-" + c.ID + ".pdf", Data: data}, nil
	default:
		return nil, invalidDocumentType(kind)
	}
}

func (s *DocumentService) Open(ctx context.Context, kind, id string, p domain.Principal, meta domain.RequestMeta) (*ports.Document, error) {
	var key, filename string
	switch kind {
	case ports.DocumentTransfer:
		t, err := s.transfers.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.PDFPath == "" && s.storeTransfer(ctx, p, t, meta) == "" {
			return nil, errors.New("transfer pdf unavailable")
		}
		key, filename = t.PDFPath, "transfer-"+t.ID+".pdf"
	case ports.DocumentClaim:
		c, err := s.claims.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c.PDFPath == "" && s.storeClaim(ctx, p, c, meta) == "" {
			return nil, errors.New("claim pdf unavailable")
		}
		key, filename = c.PDFPath, "claim-"+c.ID+".pdf"
	default:
		return nil, invalidDocumentType(kind)
	}

	data, err := s.storage.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stored pdf missing, rendering fresh copy")
		return s.Render(ctx, kind, id, p, meta)
	}
	return &ports.Document{Filename: filename, Data: data}, nil
}

func invalidDocumentType(kind string) error {
	return domain.NewValidationError("Invalid document type", domain.FieldIssue{
		Field:   "type",
		Message: fmt.Sprintf("type must be %q or %q, got %q", ports.DocumentTransfer, ports.DocumentClaim, kind),
	})
}
