package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

func TestDocumentService_Render(t *testing.T) {
	f := newFixture()
	tr, _ := f.transferService().Create(context.Background(), techPrincipal, validTransferInput(), testMeta)

	doc, err := f.docs.Render(context.Background(), ports.DocumentTransfer, tr.ID, adminPrincipal, testMeta)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.Filename != "transfer-"+tr.ID+".pdf" || !bytes.HasPrefix(doc.Data, []byte("%PDF-")) {
		t.Fatalf("unexpected document %q", doc.Filename)
	}

	if _, err := f.docs.Render(context.Background(), ports.DocumentClaim, "missing", adminPrincipal, testMeta); !errors.Is(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
	var verr *domain.ValidationError
	if _, err := f.docs.Render(context.Background(), "invoice", tr.ID, adminPrincipal, testMeta); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad type, got %v", err)
	}
}

func TestDocumentService_Open_RendersWhenMissing(t *testing.T) {
	f := newFixture()
	f.renderer.err = errors.New("offline")
	c, _ := f.claimService().Create(context.Background(), techPrincipal, validClaimInput(), testMeta)
	if c.PDFPath != "" {
		t.Fatalf("expected no stored pdf")
	}

	f.renderer.err = nil
	doc, err := f.docs.Open(context.Background(), ports.DocumentClaim, c.ID, adminPrincipal, testMeta)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(doc.Data, fakePDF) {
		t.Fatalf("unexpected bytes")
	}
	stored, _ := f.claims.FindByID(context.Background(), c.ID)
	if stored.PDFPath == "" {
		t.Fatalf("open should persist the freshly rendered pdf")
	}
}
