package domain

import "time"

// ClaimStatus is the review state of a warranty claim.
type ClaimStatus string

const (
	ClaimSubmitted   ClaimStatus = "submitted"
	ClaimUnderReview ClaimStatus = "under-review"
	ClaimApproved    ClaimStatus = "approved"
	ClaimRejected    ClaimStatus = "rejected"
	ClaimCompleted   ClaimStatus = "completed"
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimSubmitted, ClaimUnderReview, ClaimApproved, ClaimRejected, ClaimCompleted:
		return true
	}
	return false
}

// WarrantyItem is a replaced part on a claim.
type WarrantyItem struct {
	ID                 string    `json:"id"`
	ClaimID            string    `json:"claimId"`
	PartNo             string    `json:"partNo"`
	Quantity           int       `json:"quantity"`
	FailedPartSerial   string    `json:"failedPartSerial"`
	ReplacedPartSerial string    `json:"replacedPartSerial"`
	DateOfFailure      time.Time `json:"dateOfFailure"`
	DateOfRepair       time.Time `json:"dateOfRepair"`
}

// WarrantyClaim is a chiller warranty submission.
type WarrantyClaim struct {
	ID                  string         `json:"id"`
	Date                time.Time      `json:"date"`
	ChillerModel        string         `json:"chillerModel"`
	ChillerSerial       string         `json:"chillerSerial"`
	SSIDJobNumber       string         `json:"ssidJobNumber"`
	BuildingName        string         `json:"buildingName,omitempty"`
	SiteName            string         `json:"siteName"`
	TechnicianName      string         `json:"technicianName"`
	TechnicianID        string         `json:"technicianId,omitempty"`
	Comments            string         `json:"comments,omitempty"`
	CoveredByWarranty   bool           `json:"coveredByWarranty"`
	TechnicianSignature string         `json:"technicianSignature,omitempty"`
	AdminSignature      string         `json:"adminSignature,omitempty"`
	AdminProcessedStamp bool           `json:"adminProcessedStamp"`
	AdminDate           *time.Time     `json:"adminDate,omitempty"`
	Status              ClaimStatus    `json:"status"`
	PDFPath             string         `json:"pdfPath,omitempty"`
	Items               []WarrantyItem `json:"items"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}
