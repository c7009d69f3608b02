package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// --- Internal transfers ---

type transferItemRequest struct {
	Qty         int    `json:"qty"         validate:"min=1"`
	PartNo      string `json:"partNo"      validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
}

type createTransferRequest struct {
	Date            string                `json:"date"            validate:"required,datelike"`
	SSID            string                `json:"ssid"            validate:"max=100"`
	PSID            string                `json:"psid"            validate:"max=100"`
	SiteName        string                `json:"siteName"        validate:"max=200"`
	PONumber        string                `json:"poNumber"        validate:"max=100"`
	TechnicianName  string                `json:"technicianName"  validate:"required,max=200"`
	ClientName      string                `json:"clientName"      validate:"max=200"`
	ClientDate      string                `json:"clientDate"      validate:"omitempty,datelike"`
	ClientSignature string                `json:"clientSignature"`
	Items           []transferItemRequest `json:"items"           validate:"required,min=1,dive"`
}

// transferSiteRule requires at least one of SSID or PSID.
func transferSiteRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(createTransferRequest)
	if strings.TrimSpace(req.SSID) == "" && strings.TrimSpace(req.PSID) == "" {
		sl.ReportError(req.SSID, "ssid", "SSID", "ssid_or_psid", "")
	}
}

type updateTransferStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress completed cancelled"`
}

func (r createTransferRequest) toInput() ports.CreateTransferInput {
	in := ports.CreateTransferInput{
		SSID:            r.SSID,
		PSID:            r.PSID,
		SiteName:        r.SiteName,
		PONumber:        r.PONumber,
		TechnicianName:  r.TechnicianName,
		ClientName:      r.ClientName,
		ClientSignature: r.ClientSignature,
		Items:           make([]ports.TransferItemInput, 0, len(r.Items)),
	}
	// Dates were checked by the datelike rule.
	in.Date, _ = parseDate(r.Date)
	if r.ClientDate != "" {
		d, _ := parseDate(r.ClientDate)
		in.ClientDate = &d
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, ports.TransferItemInput{Qty: it.Qty, PartNo: it.PartNo, Description: it.Description})
	}
	return in
}

// --- Warranty claims ---

type claimItemRequest struct {
	PartNo             string `json:"partNo"             validate:"required,max=100"`
	Quantity           int    `json:"quantity"           validate:"min=1"`
	FailedPartSerial   string `json:"failedPartSerial"   validate:"required,max=100"`
	ReplacedPartSerial string `json:"replacedPartSerial" validate:"required,max=100"`
	DateOfFailure      string `json:"dateOfFailure"      validate:"required,datelike"`
	DateOfRepair       string `json:"dateOfRepair"       validate:"required,datelike"`
}

type createClaimRequest struct {
	Date                string             `json:"date"                validate:"required,datelike"`
	ChillerModel        string             `json:"chillerModel"        validate:"required,max=100"`
	ChillerSerial       string             `json:"chillerSerial"       validate:"required,max=100"`
	SSIDJobNumber       string             `json:"ssidJobNumber"       validate:"required,max=100"`
	BuildingName        string             `json:"buildingName"        validate:"max=200"`
	SiteName            string             `json:"siteName"            validate:"required,max=200"`
	TechnicianName      string             `json:"technicianName"      validate:"required,max=200"`
	Comments            string             `json:"comments"            validate:"max=2000"`
	CoveredByWarranty   *bool              `json:"coveredByWarranty"   validate:"required"`
	TechnicianSignature string             `json:"technicianSignature"`
	Items               []claimItemRequest `json:"items"               validate:"required,min=1,dive"`
}

type reviewClaimRequest struct {
	Decision       string `json:"decision"       validate:"required,oneof=approve reject"`
	AdminSignature string `json:"adminSignature"`
}

func (r createClaimRequest) toInput() ports.CreateClaimInput {
	in := ports.CreateClaimInput{
		ChillerModel:        r.ChillerModel,
		ChillerSerial:       r.ChillerSerial,
		SSIDJobNumber:       r.SSIDJobNumber,
		BuildingName:        r.BuildingName,
		SiteName:            r.SiteName,
		TechnicianName:      r.TechnicianName,
		Comments:            r.Comments,
		CoveredByWarranty:   r.CoveredByWarranty != nil && *r.CoveredByWarranty,
		TechnicianSignature: r.TechnicianSignature,
		Items:               make([]ports.ClaimItemInput, 0, len(r.Items)),
	}
	in.Date, _ = parseDate(r.Date)
	for _, it := range r.Items {
		failed, _ := parseDate(it.DateOfFailure)
		repaired, _ := parseDate(it.DateOfRepair)
		in.Items = append(in.Items, ports.ClaimItemInput{
			PartNo:             it.PartNo,
			Quantity:           it.Quantity,
			FailedPartSerial:   it.FailedPartSerial,
			ReplacedPartSerial: it.ReplacedPartSerial,
			DateOfFailure:      failed,
			DateOfRepair:       repaired,
		})
	}
	return in
}

// --- Listing ---

// recordFilter reads the shared list/report query parameters. endDate
// covers the whole day.
func recordFilter(status, technician, startDate, endDate string) (ports.RecordFilter, error) {
	f := ports.RecordFilter{
		Status:     strings.TrimSpace(status),
		Technician: strings.TrimSpace(technician),
	}
	var issues []domain.FieldIssue
	if startDate != "" {
		from, err := parseDate(startDate)
		if err != nil {
			issues = append(issues, domain.FieldIssue{Field: "startDate", Message: "startDate must be a valid date"})
		}
		f.From = from
	}
	if endDate != "" {
		to, err := parseDate(endDate)
		if err != nil {
			issues = append(issues, domain.FieldIssue{Field: "endDate", Message: "endDate must be a valid date"})
		} else if len(strings.TrimSpace(endDate)) == len("2006-01-02") {
			to = to.AddDate(0, 0, 1).Add(-1)
		}
		f.To = to
	}
	if len(issues) > 0 {
		return ports.RecordFilter{}, domain.NewValidationError("Invalid query parameters", issues...)
	}
	return f, nil
}
