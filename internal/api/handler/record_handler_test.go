package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
)

const validTransferBody = `{
	"date": "2026-03-14",
	"ssid": "SS-100",
	"siteName": "North Plant",
	"technicianName": "Tom Tech",
	"clientDate": "2026-03-15T10:30:00Z",
	"items": [{"qty": 2, "partNo": "P-1", "description": "Compressor valve"}]
}`

func TestTransferHandler_Create_Success(t *testing.T) {
	stub := &stubTransferService{}
	handler := NewTransferHandler(stub)

	c, rec := newContext(t, http.MethodPost, "/api/internal-transfers", strings.NewReader(validTransferBody), &techPrincipal)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var resp struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success || resp.Message != "Internal transfer submitted successfully" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	in := stub.created
	if in == nil {
		t.Fatalf("service not called")
	}
	if !in.Date.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", in.Date)
	}
	if in.ClientDate == nil || !in.ClientDate.Equal(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected client date: %v", in.ClientDate)
	}
	if len(in.Items) != 1 || in.Items[0].Qty != 2 || in.Items[0].PartNo != "P-1" {
		t.Fatalf("unexpected items: %+v", in.Items)
	}
	if stub.meta.IPAddress != "203.0.113.5" {
		t.Fatalf("client ip not forwarded: %+v", stub.meta)
	}
}

func TestTransferHandler_Create_RequiresSSIDOrPSID(t *testing.T) {
	stub := &stubTransferService{}
	handler := NewTransferHandler(stub)

	body := `{"date":"2026-03-14","technicianName":"Tom","items":[{"qty":1,"partNo":"P","description":"D"}]}`
	c, _ := newContext(t, http.MethodPost, "/api/internal-transfers", strings.NewReader(body), &techPrincipal)
	ve := expectValidation(t, handler.Create(c), "ssid")
	for _, d := range ve.Details {
		if d.Field == "ssid" && d.Message != "Either SSID or PSID must be provided" {
			t.Fatalf("unexpected message: %q", d.Message)
		}
	}
	if stub.created != nil {
		t.Fatalf("service must not be called on invalid input")
	}
}

func TestTransferHandler_Create_PSIDAlone(t *testing.T) {
	stub := &stubTransferService{}
	handler := NewTransferHandler(stub)

	body := `{"date":"2026-03-14","psid":"PS-9","technicianName":"Tom","items":[{"qty":1,"partNo":"P","description":"D"}]}`
	c, rec := newContext(t, http.MethodPost, "/api/internal-transfers", strings.NewReader(body), &techPrincipal)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)
	if stub.created.PSID != "PS-9" {
		t.Fatalf("psid not forwarded: %+v", stub.created)
	}
}

func TestTransferHandler_Create_ItemRules(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "empty items",
			body:  `{"date":"2026-03-14","ssid":"S","technicianName":"Tom","items":[]}`,
			field: "items",
		},
		{
			name:  "missing items",
			body:  `{"date":"2026-03-14","ssid":"S","technicianName":"Tom"}`,
			field: "items",
		},
		{
			name:  "zero quantity",
			body:  `{"date":"2026-03-14","ssid":"S","technicianName":"Tom","items":[{"qty":0,"partNo":"P","description":"D"}]}`,
			field: "items[0].qty",
		},
		{
			name:  "missing part number",
			body:  `{"date":"2026-03-14","ssid":"S","technicianName":"Tom","items":[{"qty":1,"description":"D"}]}`,
			field: "items[0].partNo",
		},
		{
			name:  "bad date",
			body:  `{"date":"14/03/2026","ssid":"S","technicianName":"Tom","items":[{"qty":1,"partNo":"P","description":"D"}]}`,
			field: "date",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewTransferHandler(&stubTransferService{})
			c, _ := newContext(t, http.MethodPost, "/api/internal-transfers", strings.NewReader(tc.body), &techPrincipal)
			expectValidation(t, handler.Create(c), tc.field)
		})
	}
}

func TestTransferHandler_List_Pagination(t *testing.T) {
	stub := &stubTransferService{total: 25}
	handler := NewTransferHandler(stub)

	c, rec := newContext(t, http.MethodGet, "/api/internal-transfers?page=2&perPage=10&status=pending", nil, &techPrincipal)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	if stub.filter.Limit != 10 || stub.filter.Offset != 10 || stub.filter.Status != "pending" {
		t.Fatalf("unexpected filter: %+v", stub.filter)
	}

	var resp struct {
		Data       []any `json:"data"`
		Pagination struct {
			Page            int   `json:"page"`
			Total           int64 `json:"total"`
			TotalPages      int   `json:"totalPages"`
			HasNextPage     bool  `json:"hasNextPage"`
			HasPreviousPage bool  `json:"hasPreviousPage"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Data == nil {
		t.Fatalf("data must be an empty array, got %s", rec.Body.String())
	}
	p := resp.Pagination
	if p.Page != 2 || p.Total != 25 || p.TotalPages != 3 || !p.HasNextPage || !p.HasPreviousPage {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestTransferHandler_List_ClampsPerPage(t *testing.T) {
	stub := &stubTransferService{}
	handler := NewTransferHandler(stub)

	c, _ := newContext(t, http.MethodGet, "/api/internal-transfers?page=-3&perPage=1000", nil, &techPrincipal)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.filter.Limit != domain.MaxPageSize || stub.filter.Offset != 0 {
		t.Fatalf("unexpected filter: %+v", stub.filter)
	}
}

func TestTransferHandler_Get_NotFound(t *testing.T) {
	handler := NewTransferHandler(&stubTransferService{})

	c, _ := newContext(t, http.MethodGet, "/api/internal-transfers/nope", nil, &techPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("nope")
	if err := handler.Get(c); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Fatalf("expected ErrTransferNotFound, got %v", err)
	}
}

func TestTransferHandler_UpdateStatus(t *testing.T) {
	stub := &stubTransferService{}
	handler := NewTransferHandler(stub)

	c, rec := newContext(t, http.MethodPatch, "/api/internal-transfers/tr-1/status", strings.NewReader(`{"status":"in-progress"}`), &adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("tr-1")
	if err := handler.UpdateStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if stub.status != domain.TransferInProgress {
		t.Fatalf("unexpected status: %q", stub.status)
	}

	c, _ = newContext(t, http.MethodPatch, "/api/internal-transfers/tr-1/status", strings.NewReader(`{"status":"shipped"}`), &adminPrincipal)
	expectValidation(t, handler.UpdateStatus(c), "status")
}

const validClaimBody = `{
	"date": "2026-03-14",
	"chillerModel": "CH-200",
	"chillerSerial": "SN-1",
	"ssidJobNumber": "J-77",
	"siteName": "North Plant",
	"technicianName": "Tom Tech",
	"coveredByWarranty": false,
	"items": [{
		"partNo": "P-1",
		"quantity": 1,
		"failedPartSerial": "F-1",
		"replacedPartSerial": "R-1",
		"dateOfFailure": "2026-03-01",
		"dateOfRepair": "2026-03-02"
	}]
}`

func TestClaimHandler_Create_Success(t *testing.T) {
	stub := &stubClaimService{}
	handler := NewClaimHandler(stub)

	c, rec := newContext(t, http.MethodPost, "/api/warranty-claims", strings.NewReader(validClaimBody), &techPrincipal)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)
	if !strings.Contains(rec.Body.String(), "Warranty claim submitted successfully") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	in := stub.created
	if in == nil || in.CoveredByWarranty || len(in.Items) != 1 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !in.Items[0].DateOfRepair.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected repair date: %v", in.Items[0].DateOfRepair)
	}
}

func TestClaimHandler_Create_RequiresWarrantyFlag(t *testing.T) {
	handler := NewClaimHandler(&stubClaimService{})

	body := strings.Replace(validClaimBody, `"coveredByWarranty": false,`, "", 1)
	c, _ := newContext(t, http.MethodPost, "/api/warranty-claims", strings.NewReader(body), &techPrincipal)
	expectValidation(t, handler.Create(c), "coveredByWarranty")
}

func TestClaimHandler_Review(t *testing.T) {
	stub := &stubClaimService{}
	handler := NewClaimHandler(stub)

	c, rec := newContext(t, http.MethodPatch, "/api/warranty-claims/cl-1/review", strings.NewReader(`{"decision":"approve","adminSignature":"data:image/png;base64,AAAA"}`), &adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("cl-1")
	if err := handler.Review(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if stub.review == nil || !stub.review.Approve || stub.review.AdminSignature == "" {
		t.Fatalf("unexpected review input: %+v", stub.review)
	}
	if !strings.Contains(rec.Body.String(), "Warranty claim approved") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	c, rec = newContext(t, http.MethodPatch, "/api/warranty-claims/cl-1/review", strings.NewReader(`{"decision":"reject"}`), &adminPrincipal)
	if err := handler.Review(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Warranty claim rejected") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestClaimHandler_Review_UnknownDecision(t *testing.T) {
	handler := NewClaimHandler(&stubClaimService{})

	c, _ := newContext(t, http.MethodPatch, "/api/warranty-claims/cl-1/review", strings.NewReader(`{"decision":"maybe"}`), &adminPrincipal)
	expectValidation(t, handler.Review(c), "decision")
}

func TestPDFHandler_Generate(t *testing.T) {
	stub := &stubDocumentService{}
	handler := NewPDFHandler(stub)

	c, rec := newContext(t, http.MethodPost, "/api/pdf", strings.NewReader(`{"type":"claim","id":"cl-1"}`), &techPrincipal)
	if err := handler.Generate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var resp struct {
		Data pdfResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data.PDF)
	if err != nil {
		t.Fatalf("pdf is not base64: %v", err)
	}
	if !strings.HasPrefix(string(raw), "%PDF") {
		t.Fatalf("unexpected pdf bytes: %q", raw)
	}
	if resp.Data.ContentType != "application/pdf" || resp.Data.Filename != "claim-cl-1.pdf" {
		t.Fatalf("unexpected response: %+v", resp.Data)
	}
	if stub.kind != "claim" || stub.id != "cl-1" {
		t.Fatalf("unexpected render args: %s %s", stub.kind, stub.id)
	}
}

func TestPDFHandler_Generate_InvalidType(t *testing.T) {
	handler := NewPDFHandler(&stubDocumentService{})

	c, _ := newContext(t, http.MethodPost, "/api/pdf", strings.NewReader(`{"type":"invoice","id":"x"}`), &techPrincipal)
	expectValidation(t, handler.Generate(c), "type")
}

func TestPDFHandler_Download(t *testing.T) {
	handler := NewPDFHandler(&stubDocumentService{})

	c, rec := newContext(t, http.MethodGet, "/api/pdf/transfer/tr-1", nil, &techPrincipal)
	c.SetParamNames("type", "id")
	c.SetParamValues("transfer", "tr-1")
	if err := handler.Download(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `inline; filename="transfer-tr-1.pdf"` {
		t.Fatalf("unexpected disposition: %q", cd)
	}

	c, _ = newContext(t, http.MethodGet, "/api/pdf/claim/missing", nil, &techPrincipal)
	c.SetParamNames("type", "id")
	c.SetParamValues("claim", "missing")
	if err := handler.Download(c); !errors.Is(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}
