package domain

import "time"

// TransferStatus is the processing state of an internal transfer.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferInProgress TransferStatus = "in-progress"
	TransferCompleted  TransferStatus = "completed"
	TransferCancelled  TransferStatus = "cancelled"
)

// Valid reports whether s is a known transfer status.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferInProgress, TransferCompleted, TransferCancelled:
		return true
	}
	return false
}

// InternalTransferItem is a single part line on a transfer.
type InternalTransferItem struct {
	ID          string `json:"id"`
	TransferID  string `json:"transferId"`
	Qty         int    `json:"qty"`
	PartNo      string `json:"partNo"`
	Description string `json:"description"`
}

// InternalTransfer records parts moved between sites by a technician.
type InternalTransfer struct {
	ID              string                 `json:"id"`
	Date            time.Time              `json:"date"`
	SSID            string                 `json:"ssid"`
	SiteName        string                 `json:"siteName,omitempty"`
	PONumber        string                 `json:"poNumber,omitempty"`
	TechnicianName  string                 `json:"technicianName"`
	TechnicianID    string                 `json:"technicianId"`
	ClientName      string                 `json:"clientName,omitempty"`
	ClientDate      *time.Time             `json:"clientDate,omitempty"`
	ClientSignature string                 `json:"clientSignature,omitempty"`
	Status          TransferStatus         `json:"status"`
	PDFPath         string                 `json:"pdfPath,omitempty"`
	AdminStamp      bool                   `json:"adminStamp"`
	ApprovedBy      string                 `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time             `json:"approvedAt,omitempty"`
	Items           []InternalTransferItem `json:"items"`
	Technician      *UserSummary           `json:"technician,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}
