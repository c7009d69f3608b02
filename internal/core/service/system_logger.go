package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const systemLogTimeout = 3 * time.Second

// LogEntry is the input to SystemLogger.Record.
type LogEntry struct {
	EventType domain.EventType
	Action    string
	Actor     domain.Principal
	Details   map[string]any
	Meta      domain.RequestMeta
	Err       error
}

// SystemLogger writes audit rows. Writes are best effort: failures are logged
// and counted, never returned to the caller.
type SystemLogger struct {
	repo ports.SystemLogRepository
	log  zerolog.Logger
	now  func() time.Time
}

func NewSystemLogger(repo ports.SystemLogRepository, log zerolog.Logger) *SystemLogger {
	return &SystemLogger{repo: repo, log: log, now: time.Now}
}

// Record stores e. The write survives cancellation of ctx.
func (s *SystemLogger) Record(ctx context.Context, e LogEntry) {
	entry := &domain.SystemLog{
		EventType: e.EventType,
		Action:    e.Action,
		UserID:    e.Actor.UserID,
		UserName:  e.Actor.Name,
		Details:   e.Details,
		IPAddress: e.Meta.IPAddress,
		UserAgent: e.Meta.UserAgent,
		Success:   e.Err == nil,
		Timestamp: s.now().UTC(),
	}
	if e.Err != nil {
		entry.ErrorMessage = e.Err.Error()
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), systemLogTimeout)
	defer cancel()

	if err := s.repo.Insert(wctx, entry); err != nil {
		metrics.SystemLogWriteErrorsTotal.Inc()
		s.log.Error().Err(err).
			Str("event_type", string(e.EventType)).
			Str("action", e.Action).
			Msg("failed to write system log")
	}
}

// Submission records a created transfer or claim.
func (s *SystemLogger) Submission(ctx context.Context, p domain.Principal, entity, id string, details map[string]any, meta domain.RequestMeta) {
	d := map[string]any{"entityType": entity, "entityId": id}
	for k, v := range details {
		d[k] = v
	}
	s.Record(ctx, LogEntry{
		EventType: domain.EventSubmission,
		Action:    entity + "_created",
		Actor:     p,
		Details:   d,
		Meta:      meta,
	})
}

// PDFGeneration records a render attempt; err marks it failed.
func (s *SystemLogger) PDFGeneration(ctx context.Context, p domain.Principal, entity, id, path string, err error, meta domain.RequestMeta) {
	d := map[string]any{"entityType": entity, "entityId": id}
	if path != "" {
		d["pdfPath"] = path
	}
	s.Record(ctx, LogEntry{
		EventType: domain.EventPDFGeneration,
		Action:    entity + "_pdf_generated",
		Actor:     p,
		Details:   d,
		Meta:      meta,
		Err:       err,
	})
}

// AdminApproval records an approve or reject decision.
func (s *SystemLogger) AdminApproval(ctx context.Context, p domain.Principal, entity, id string, approved bool, details map[string]any, meta domain.RequestMeta) {
	action := entity + "_rejected"
	if approved {
		action = entity + "_approved"
	}
	d := map[string]any{"entityType": entity, "entityId": id}
	for k, v := range details {
		d[k] = v
	}
	s.Record(ctx, LogEntry{
		EventType: domain.EventAdminApproval,
		Action:    action,
		Actor:     p,
		Details:   d,
		Meta:      meta,
	})
}

// Auth records login, logout and password recovery events.
func (s *SystemLogger) Auth(ctx context.Context, action string, p domain.Principal, details map[string]any, err error, meta domain.RequestMeta) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.AuthEventsTotal.WithLabelValues(action, result).Inc()
	s.Record(ctx, LogEntry{
		EventType: domain.EventAuth,
		Action:    action,
		Actor:     p,
		Details:   details,
		Meta:      meta,
		Err:       err,
	})
}

// UserManagement records invitations, signups and admin account changes.
func (s *SystemLogger) UserManagement(ctx context.Context, action string, p domain.Principal, details map[string]any, meta domain.RequestMeta) {
	s.Record(ctx, LogEntry{
		EventType: domain.EventUserManagement,
		Action:    action,
		Actor:     p,
		Details:   details,
		Meta:      meta,
	})
}

// Email records a queue or delivery outcome as <kind>_<stage>.
func (s *SystemLogger) Email(ctx context.Context, stage string, job ports.EmailJob, details map[string]any, err error) {
	d := map[string]any{"to": job.Message.To, "subject": job.Message.Subject}
	if job.Ref != "" {
		d["ref"] = job.Ref
	}
	for k, v := range details {
		d[k] = v
	}
	eventType := domain.EventSubmission
	if job.Kind == ports.EmailInvitation || job.Kind == ports.EmailPasswordReset {
		eventType = domain.EventUserManagement
	}
	s.Record(ctx, LogEntry{
		EventType: eventType,
		Action:    job.Kind + "_" + stage,
		Actor:     domain.Principal{UserID: job.UserID, Name: job.UserName},
		Details:   d,
		Err:       err,
	})
}
