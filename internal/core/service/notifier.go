package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	subjectInvitation    = "You're invited to join PartPulse"
	subjectPasswordReset = "Reset Your PartPulse Password"
)

// NotifierConfig carries the addresses used when composing messages.
type NotifierConfig struct {
	AdminEmail string
}

// Notifier renders outgoing messages and hands them to the email queue.
// Queue failures are recorded in the system log and never surface to callers.
type Notifier struct {
	queue ports.EmailQueue
	audit *SystemLogger
	cfg   NotifierConfig
	log   zerolog.Logger
}

func NewNotifier(queue ports.EmailQueue, audit *SystemLogger, cfg NotifierConfig, log zerolog.Logger) *Notifier {
	return &Notifier{queue: queue, audit: audit, cfg: cfg, log: log}
}

type invitationView struct {
	Name      string
	Email     string
	Role      string
	InvitedBy string
	Expires   string
	URL       string
}

// Invitation queues the signup link for inv.
func (n *Notifier) Invitation(ctx context.Context, inv *domain.Invitation, inviter domain.Principal, url string) {
	view := invitationView{
		Name:      inv.Name,
		Email:     inv.Email,
		Role:      inv.Role,
		InvitedBy: inviter.Name,
		Expires:   inv.ExpiresAt.UTC().Format(time.RFC1123),
		URL:       url,
	}
	if view.InvitedBy == "" {
		view.InvitedBy = "An administrator"
	}
	n.send(ctx, ports.EmailInvitation, invitationEmail, subjectInvitation, view, []string{inv.Email}, nil, inviter, inv.ID)
}

type resetView struct {
	Name string
	URL  string
}

// PasswordReset queues the reset link for user.
func (n *Notifier) PasswordReset(ctx context.Context, user *domain.User, url string) {
	view := resetView{Name: user.Name, URL: url}
	actor := domain.Principal{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
	n.send(ctx, ports.EmailPasswordReset, resetEmail, subjectPasswordReset, view, []string{user.Email}, nil, actor, user.ID)
}

// TransferReceipt queues the confirmation for a submitted transfer. pdfKey may
// be empty when rendering failed.
func (n *Notifier) TransferReceipt(ctx context.Context, t *domain.InternalTransfer, submitter domain.Principal, pdfKey string) {
	subject := fmt.Sprintf("Internal Transfer Confirmation - %s", t.ID)
	n.send(ctx, ports.EmailTransfer, transferEmail, subject, t, n.receiptRecipients(submitter), pdfAttachment(pdfKey), submitter, t.ID)
}

// ClaimReceipt queues the confirmation for a submitted warranty claim.
func (n *Notifier) ClaimReceipt(ctx context.Context, c *domain.WarrantyClaim, submitter domain.Principal, pdfKey string) {
	subject := fmt.Sprintf("Warranty Claim Confirmation - %s", c.ID)
	n.send(ctx, ports.EmailWarranty, claimEmail, subject, c, n.receiptRecipients(submitter), pdfAttachment(pdfKey), submitter, c.ID)
}

func (n *Notifier) receiptRecipients(submitter domain.Principal) []string {
	var to []string
	if submitter.Email != "" {
		to = append(to, submitter.Email)
	}
	if n.cfg.AdminEmail != "" && !strings.EqualFold(n.cfg.AdminEmail, submitter.Email) {
		to = append(to, n.cfg.AdminEmail)
	}
	return to
}

func pdfAttachment(key string) []ports.Attachment {
	if key == "" {
		return nil
	}
	return []ports.Attachment{{
		Filename:    path.Base(key),
		ContentType: "application/pdf",
		StorageKey:  key,
	}}
}

func (n *Notifier) send(ctx context.Context, kind string, tpl emailTemplate, subject string, data any, to []string, attachments []ports.Attachment, actor domain.Principal, ref string) {
	job := ports.EmailJob{
		Kind:     kind,
		UserID:   actor.UserID,
		UserName: actor.Name,
		Ref:      ref,
		Message: ports.EmailMessage{
			To:          to,
			Subject:     subject,
			Attachments: attachments,
		},
	}
	if len(to) == 0 {
		n.audit.Email(ctx, "failed", job, nil, fmt.Errorf("no recipients"))
		metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		return
	}

	htmlBody, textBody, err := tpl.render(subject, data)
	if err != nil {
		n.log.Error().Err(err).Str("kind", kind).Str("ref", ref).Msg("failed to render email")
		n.audit.Email(ctx, "failed", job, nil, err)
		metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		return
	}
	job.Message.HTML = htmlBody
	job.Message.Text = textBody

	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.log.Error().Err(err).Str("kind", kind).Str("ref", ref).Msg("failed to enqueue email")
		n.audit.Email(ctx, "failed", job, nil, err)
		metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		return
	}
	n.audit.Email(ctx, "queued", job, nil, nil)
	metrics.EmailsTotal.WithLabelValues(kind, "queued").Inc()
}
