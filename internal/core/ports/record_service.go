package ports

import (
	"context"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

type TransferItemInput struct {
	Qty         int
	PartNo      string
	Description string
}

// CreateTransferInput is the validated transfer form. Exactly one of SSID/PSID
// may be blank; PSID is stored as the SSID when SSID is missing.
type CreateTransferInput struct {
	Date            time.Time
	SSID            string
	PSID            string
	SiteName        string
	PONumber        string
	TechnicianName  string
	ClientName      string
	ClientDate      *time.Time
	ClientSignature string
	Items           []TransferItemInput
}

type ClaimItemInput struct {
	PartNo             string
	Quantity           int
	FailedPartSerial   string
	ReplacedPartSerial string
	DateOfFailure      time.Time
	DateOfRepair       time.Time
}

type CreateClaimInput struct {
	Date                time.Time
	ChillerModel        string
	ChillerSerial       string
	SSIDJobNumber       string
	BuildingName        string
	SiteName            string
	TechnicianName      string
	Comments            string
	CoveredByWarranty   bool
	TechnicianSignature string
	Items               []ClaimItemInput
}

type ReviewClaimInput struct {
	Approve        bool
	AdminSignature string
}

type TransferService interface {
	Create(ctx context.Context, p domain.Principal, in CreateTransferInput, meta domain.RequestMeta) (*domain.InternalTransfer, error)
	Get(ctx context.Context, id string) (*domain.InternalTransfer, error)
	List(ctx context.Context, filter RecordFilter) ([]*domain.InternalTransfer, int64, error)
	UpdateStatus(ctx context.Context, p domain.Principal, id string, status domain.TransferStatus, meta domain.RequestMeta) (*domain.InternalTransfer, error)
}

type ClaimService interface {
	Create(ctx context.Context, p domain.Principal, in CreateClaimInput, meta domain.RequestMeta) (*domain.WarrantyClaim, error)
	Get(ctx context.Context, id string) (*domain.WarrantyClaim, error)
	List(ctx context.Context, filter RecordFilter) ([]*domain.WarrantyClaim, int64, error)
	Review(ctx context.Context, p domain.Principal, id string, in ReviewClaimInput, meta domain.RequestMeta) (*domain.WarrantyClaim, error)
}

const (
	DocumentTransfer = "transfer"
	DocumentClaim    = "claim"
)

// Document is a rendered PDF ready to be returned to a client.
type Document struct {
	Filename string
	Data     []byte
}

type DocumentService interface {
	// Render produces fresh PDF bytes for the record.
	Render(ctx context.Context, kind, id string, p domain.Principal, meta domain.RequestMeta) (*Document, error)
	// Open returns the stored PDF, rendering and storing it when missing.
	Open(ctx context.Context, kind, id string, p domain.Principal, meta domain.RequestMeta) (*Document, error)
}
