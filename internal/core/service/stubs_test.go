package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs shared by the service tests
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash == hash && u.ResetTokenExpiry != nil && now.Before(*u.ResetTokenExpiry) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpiry = nil
	return nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetTokenHash = hash
	u.ResetTokenExpiry = &expiresAt
	return nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type stubInvitationRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Invitation
}

func newStubInvitationRepo() *stubInvitationRepo {
	return &stubInvitationRepo{byID: make(map[string]*domain.Invitation)}
}

func (r *stubInvitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *inv
	r.byID[inv.ID] = &c
	return nil
}

func (r *stubInvitationRepo) FindByTokenHash(_ context.Context, hash string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.TokenHash == hash {
			c := *inv
			return &c, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (r *stubInvitationRepo) MarkAccepted(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return domain.ErrInvitationNotFound
	}
	inv.AcceptedAt = &at
	return nil
}

func (r *stubInvitationRepo) ListRecent(_ context.Context, limit, offset int) ([]*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Invitation
	for _, inv := range r.byID {
		c := *inv
		out = append(out, &c)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubInvitationRepo) Counts(_ context.Context, now time.Time) (ports.InvitationCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c ports.InvitationCounts
	for _, inv := range r.byID {
		c.Total++
		switch inv.Status(now) {
		case domain.InvitationAccepted:
			c.Accepted++
		case domain.InvitationExpired:
			c.Expired++
		default:
			c.Pending++
		}
	}
	return c, nil
}

type stubTransferRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.InternalTransfer
	createErr  error
	lastFilter ports.RecordFilter
	listCalls  int
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{byID: make(map[string]*domain.InternalTransfer)}
}

func (r *stubTransferRepo) Create(_ context.Context, t *domain.InternalTransfer) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.byID[t.ID] = &c
	return nil
}

func (r *stubTransferRepo) FindByID(_ context.Context, id string) (*domain.InternalTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTransferRepo) List(_ context.Context, f ports.RecordFilter) ([]*domain.InternalTransfer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	r.listCalls++
	var out []*domain.InternalTransfer
	for _, t := range r.byID {
		if f.Status != "" && string(t.Status) != f.Status {
			continue
		}
		if f.Technician != "" && !strings.Contains(strings.ToLower(t.TechnicianName), strings.ToLower(f.Technician)) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *stubTransferRepo) UpdatePDFPath(_ context.Context, id, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return domain.ErrTransferNotFound
	}
	t.PDFPath = path
	return nil
}

func (r *stubTransferRepo) UpdateStatus(_ context.Context, t *domain.InternalTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return domain.ErrTransferNotFound
	}
	c := *t
	r.byID[t.ID] = &c
	return nil
}

type stubClaimRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.WarrantyClaim
}

func newStubClaimRepo() *stubClaimRepo {
	return &stubClaimRepo{byID: make(map[string]*domain.WarrantyClaim)}
}

func (r *stubClaimRepo) Create(_ context.Context, c *domain.WarrantyClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *stubClaimRepo) FindByID(_ context.Context, id string) (*domain.WarrantyClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrClaimNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubClaimRepo) List(_ context.Context, f ports.RecordFilter) ([]*domain.WarrantyClaim, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WarrantyClaim
	for _, c := range r.byID {
		cp := *c
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *stubClaimRepo) UpdatePDFPath(_ context.Context, id, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrClaimNotFound
	}
	c.PDFPath = path
	return nil
}

func (r *stubClaimRepo) UpdateReview(_ context.Context, c *domain.WarrantyClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return domain.ErrClaimNotFound
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

// stubLogRepo keeps audit rows newest first, like the real stores return them.
type stubLogRepo struct {
	mu        sync.Mutex
	entries   []*domain.SystemLog
	insertErr error
}

func (r *stubLogRepo) Insert(_ context.Context, e *domain.SystemLog) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	r.entries = append([]*domain.SystemLog{&c}, r.entries...)
	return nil
}

func matchLog(e *domain.SystemLog, f ports.SystemLogFilter) bool {
	switch {
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.UserID != "" && e.UserID != f.UserID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.ActionPrefix != "" && !strings.HasPrefix(e.Action, f.ActionPrefix):
		return false
	case f.ActionSuffix != "" && !strings.HasSuffix(e.Action, f.ActionSuffix):
		return false
	case f.ActionContains != "" && !strings.Contains(e.Action, f.ActionContains):
		return false
	case f.Success != nil && e.Success != *f.Success:
		return false
	}
	return true
}

func (r *stubLogRepo) Query(_ context.Context, f ports.SystemLogFilter) ([]*domain.SystemLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SystemLog
	for _, e := range r.entries {
		if matchLog(e, f) {
			out = append(out, e)
		}
	}
	total := int64(len(out))
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *stubLogRepo) Count(ctx context.Context, f ports.SystemLogFilter) (int64, error) {
	f.Limit, f.Offset = 0, 0
	_, n, err := r.Query(ctx, f)
	return n, err
}

func (r *stubLogRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		out = append(out, r.entries[i].Action)
	}
	return out
}

func (r *stubLogRepo) find(action string) *domain.SystemLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Action == action {
			return e
		}
	}
	return nil
}

type stubQueue struct {
	mu   sync.Mutex
	jobs []ports.EmailJob
	err  error
}

func (q *stubQueue) Enqueue(_ context.Context, job ports.EmailJob) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type stubStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newStubStorage() *stubStorage {
	return &stubStorage{files: make(map[string][]byte)}
}

func (s *stubStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return "/storage/" + key, nil
}

func (s *stubStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *stubStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

func (s *stubStorage) URL(key string) string { return "/storage/" + key }

type stubRenderer struct {
	err   error
	calls int
	// stamped records the admin stamp flag seen on the last transfer render.
	stamped bool
}

var fakePDF = []byte("%PDF-1.3\nfake\n%%EOF\n")

func (r *stubRenderer) Transfer(_ context.Context, t *domain.InternalTransfer) ([]byte, error) {
	r.calls++
	r.stamped = t.AdminStamp
	if r.err != nil {
		return nil, r.err
	}
	return fakePDF, nil
}

func (r *stubRenderer) Claim(_ context.Context, c *domain.WarrantyClaim) ([]byte, error) {
	r.calls++
	r.stamped = c.AdminProcessedStamp
	if r.err != nil {
		return nil, r.err
	}
	return fakePDF, nil
}

type stubCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (c *stubCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *stubCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *stubCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, prefix)
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type stubMailer struct {
	result ports.EmailResult
	sent   []ports.EmailMessage
}

func (m *stubMailer) Send(_ context.Context, msg ports.EmailMessage) ports.EmailResult {
	m.sent = append(m.sent, msg)
	return m.result
}

func (m *stubMailer) Verify(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Fixture wiring
// ---------------------------------------------------------------------------

type fixture struct {
	users       *stubUserRepo
	invitations *stubInvitationRepo
	transfers   *stubTransferRepo
	claims      *stubClaimRepo
	logs        *stubLogRepo
	queue       *stubQueue
	storage     *stubStorage
	renderer    *stubRenderer
	cache       *stubCache

	audit    *SystemLogger
	notifier *Notifier
	docs     *DocumentService
}

func newFixture() *fixture {
	f := &fixture{
		users:       newStubUserRepo(),
		invitations: newStubInvitationRepo(),
		transfers:   newStubTransferRepo(),
		claims:      newStubClaimRepo(),
		logs:        &stubLogRepo{},
		queue:       &stubQueue{},
		storage:     newStubStorage(),
		renderer:    &stubRenderer{},
		cache:       newStubCache(),
	}
	log := zerolog.Nop()
	f.audit = NewSystemLogger(f.logs, log)
	f.notifier = NewNotifier(f.queue, f.audit, NotifierConfig{AdminEmail: "admin@partpulse.test"}, log)
	f.docs = NewDocumentService(f.transfers, f.claims, f.renderer, f.storage, f.audit, log)
	return f
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(f.users, f.invitations, f.notifier, f.audit, AuthConfig{
		JWTSecret: "test-secret",
		AppURL:    "https://parts.example.com/",
	}, zerolog.Nop())
}

func (f *fixture) transferService() *TransferService {
	return NewTransferService(f.transfers, f.docs, f.notifier, f.audit, f.cache, zerolog.Nop())
}

func (f *fixture) claimService() *ClaimService {
	return NewClaimService(f.claims, f.docs, f.notifier, f.audit, f.cache, zerolog.Nop())
}

func (f *fixture) adminService() *AdminService {
	return NewAdminService(f.users, f.invitations, f.logs, f.audit, zerolog.Nop())
}

var (
	adminPrincipal = domain.Principal{UserID: "admin-1", Email: "boss@example.com", Name: "Boss", Role: domain.RoleAdmin}
	techPrincipal  = domain.Principal{UserID: "tech-1", Email: "tech@example.com", Name: "Tess Tech", Role: domain.RoleTechnician}
	testMeta       = domain.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "go-test"}
)

const strongPassword = "Sup3r$ecurePassw0rd!"
