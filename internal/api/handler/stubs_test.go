package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/partpulse/partpulse/internal/api/middleware"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

var (
	adminPrincipal = domain.Principal{UserID: "admin-1", Email: "admin@example.com", Name: "Ada Admin", Role: domain.RoleAdmin}
	techPrincipal  = domain.Principal{UserID: "tech-1", Email: "tech@example.com", Name: "Tom Tech", Role: domain.RoleTechnician}
)

// newContext builds an echo context with the package validator and an optional principal.
func newContext(t *testing.T, method, target string, body io.Reader, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	req.Header.Set("User-Agent", "handler-test")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(middleware.PrincipalKey, *p)
	}
	return c, rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectValidation(t *testing.T, err error, field string) *domain.ValidationError {
	t.Helper()
	ve, ok := err.(*domain.ValidationError)
	if !ok {
		t.Fatalf("expected *domain.ValidationError, got %T (%v)", err, err)
	}
	if field == "" {
		return ve
	}
	for _, d := range ve.Details {
		if d.Field == field {
			return ve
		}
	}
	t.Fatalf("expected issue for %q, got %+v", field, ve.Details)
	return nil
}

// --- service stubs ---

type stubAuthService struct {
	loginFn          func(ctx context.Context, email, password string, meta domain.RequestMeta) (*ports.LoginResult, error)
	inviteFn         func(ctx context.Context, p domain.Principal, in ports.InviteInput, meta domain.RequestMeta) (*ports.InviteResult, error)
	verifyFn         func(ctx context.Context, token string) (*domain.Invitation, error)
	completeSignupFn func(ctx context.Context, in ports.CompleteSignupInput, meta domain.RequestMeta) (*domain.User, error)
	resetRequested   []string
	loggedOut        []domain.Principal
}

func (s *stubAuthService) Login(ctx context.Context, email, password string, meta domain.RequestMeta) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password, meta)
}

func (s *stubAuthService) Logout(_ context.Context, p domain.Principal, _ domain.RequestMeta) {
	s.loggedOut = append(s.loggedOut, p)
}

func (s *stubAuthService) Me(_ context.Context, userID string) (*domain.User, error) {
	return &domain.User{ID: userID}, nil
}

func (s *stubAuthService) Invite(ctx context.Context, p domain.Principal, in ports.InviteInput, meta domain.RequestMeta) (*ports.InviteResult, error) {
	return s.inviteFn(ctx, p, in, meta)
}

func (s *stubAuthService) VerifyInvitation(ctx context.Context, token string) (*domain.Invitation, error) {
	return s.verifyFn(ctx, token)
}

func (s *stubAuthService) CompleteSignup(ctx context.Context, in ports.CompleteSignupInput, meta domain.RequestMeta) (*domain.User, error) {
	return s.completeSignupFn(ctx, in, meta)
}

func (s *stubAuthService) CanCreateFirstAdmin(context.Context) (bool, error) { return true, nil }

func (s *stubAuthService) CreateFirstAdmin(_ context.Context, in ports.FirstAdminInput, _ domain.RequestMeta) (*domain.User, error) {
	return &domain.User{ID: "new-admin", Email: in.Email, Name: in.Name, Role: domain.RoleAdmin}, nil
}

func (s *stubAuthService) RequestPasswordReset(_ context.Context, email string, _ domain.RequestMeta) error {
	s.resetRequested = append(s.resetRequested, email)
	return nil
}

func (s *stubAuthService) ResetPassword(context.Context, string, string, domain.RequestMeta) error {
	return domain.ErrInvalidResetToken
}

type stubTransferService struct {
	created *ports.CreateTransferInput
	meta    domain.RequestMeta
	filter  ports.RecordFilter
	total   int64
	status  domain.TransferStatus
}

func (s *stubTransferService) Create(_ context.Context, p domain.Principal, in ports.CreateTransferInput, meta domain.RequestMeta) (*domain.InternalTransfer, error) {
	s.created = &in
	s.meta = meta
	return &domain.InternalTransfer{ID: "tr-1", SSID: in.SSID, TechnicianID: p.UserID, Status: domain.TransferPending}, nil
}

func (s *stubTransferService) Get(_ context.Context, id string) (*domain.InternalTransfer, error) {
	if id != "tr-1" {
		return nil, domain.ErrTransferNotFound
	}
	return &domain.InternalTransfer{ID: id}, nil
}

func (s *stubTransferService) List(_ context.Context, filter ports.RecordFilter) ([]*domain.InternalTransfer, int64, error) {
	s.filter = filter
	return nil, s.total, nil
}

func (s *stubTransferService) UpdateStatus(_ context.Context, _ domain.Principal, id string, status domain.TransferStatus, _ domain.RequestMeta) (*domain.InternalTransfer, error) {
	s.status = status
	return &domain.InternalTransfer{ID: id, Status: status}, nil
}

type stubClaimService struct {
	created *ports.CreateClaimInput
	review  *ports.ReviewClaimInput
}

func (s *stubClaimService) Create(_ context.Context, _ domain.Principal, in ports.CreateClaimInput, _ domain.RequestMeta) (*domain.WarrantyClaim, error) {
	s.created = &in
	return &domain.WarrantyClaim{ID: "cl-1", Status: domain.ClaimSubmitted}, nil
}

func (s *stubClaimService) Get(_ context.Context, id string) (*domain.WarrantyClaim, error) {
	return &domain.WarrantyClaim{ID: id}, nil
}

func (s *stubClaimService) List(context.Context, ports.RecordFilter) ([]*domain.WarrantyClaim, int64, error) {
	return []*domain.WarrantyClaim{{ID: "cl-1"}}, 1, nil
}

func (s *stubClaimService) Review(_ context.Context, _ domain.Principal, id string, in ports.ReviewClaimInput, _ domain.RequestMeta) (*domain.WarrantyClaim, error) {
	s.review = &in
	status := domain.ClaimRejected
	if in.Approve {
		status = domain.ClaimApproved
	}
	return &domain.WarrantyClaim{ID: id, Status: status, AdminProcessedStamp: in.Approve}, nil
}

type stubDocumentService struct {
	kind, id string
}

func (s *stubDocumentService) Render(_ context.Context, kind, id string, _ domain.Principal, _ domain.RequestMeta) (*ports.Document, error) {
	s.kind, s.id = kind, id
	return &ports.Document{Filename: kind + "-" + id + ".pdf", Data: []byte("%PDF-1.3 test %%EOF")}, nil
}

func (s *stubDocumentService) Open(ctx context.Context, kind, id string, p domain.Principal, meta domain.RequestMeta) (*ports.Document, error) {
	if id == "missing" {
		return nil, domain.ErrClaimNotFound
	}
	return s.Render(ctx, kind, id, p, meta)
}

type stubAdminService struct {
	filter ports.SystemLogFilter
	logs   []*domain.SystemLog
	total  int64
}

func (s *stubAdminService) ListUsers(context.Context) ([]*domain.User, error) {
	return []*domain.User{{ID: "u1", PasswordHash: "secret-hash"}}, nil
}

func (s *stubAdminService) ResetUserPassword(_ context.Context, _ domain.Principal, userID string, _ domain.RequestMeta) (string, *domain.User, error) {
	if userID == "ghost" {
		return "", nil, domain.ErrUserNotFound
	}
	return "Temp#Password12345", &domain.User{ID: userID}, nil
}

func (s *stubAdminService) Logs(_ context.Context, filter ports.SystemLogFilter) ([]*domain.SystemLog, int64, error) {
	s.filter = filter
	return s.logs, s.total, nil
}

func (s *stubAdminService) Communications(context.Context, int, int) (*ports.CommunicationsReport, error) {
	return &ports.CommunicationsReport{}, nil
}

type stubReportService struct {
	query ports.ReportQuery
}

func (s *stubReportService) Transfers(_ context.Context, q ports.ReportQuery) (*ports.TransferReport, error) {
	s.query = q
	return &ports.TransferReport{Items: []*domain.InternalTransfer{}, Pagination: ports.Pagination{Page: q.Page, PerPage: q.PerPage}}, nil
}

func (s *stubReportService) Claims(_ context.Context, q ports.ReportQuery) (*ports.ClaimReport, error) {
	s.query = q
	return &ports.ClaimReport{Items: []*domain.WarrantyClaim{}, Pagination: ports.Pagination{Page: q.Page, PerPage: q.PerPage}}, nil
}
