package ports

import "context"

// Email kinds double as the system-log action prefix (<kind>_queued, _sent, _failed).
const (
	EmailInvitation    = "invitation_email"
	EmailTransfer      = "transfer_email"
	EmailWarranty      = "warranty_email"
	EmailPasswordReset = "password_reset_email"
)

// Attachment references a file either inline or by storage key.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// EmailMessage is a fully rendered message ready for delivery.
type EmailMessage struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// EmailResult mirrors what the sender reports back.
type EmailResult struct {
	Success   bool
	MessageID string
	Error     string
	// Disabled is set when delivery is switched off and nothing was attempted.
	Disabled bool
}

// EmailJob is the unit placed on the email queue.
type EmailJob struct {
	Kind     string       `json:"kind"`
	Message  EmailMessage `json:"message"`
	UserID   string       `json:"user_id,omitempty"`
	UserName string       `json:"user_name,omitempty"`
	// Ref identifies the record the email is about (transfer id, invitation id, ...).
	Ref string `json:"ref,omitempty"`
	// WillRetry is set by the queue when a failed attempt will be tried again.
	// Only the last attempt of a job is recorded as failed.
	WillRetry bool `json:"-"`
}

// Mailer sends a single rendered message.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) EmailResult
	Verify(ctx context.Context) error
}

// EmailQueue accepts jobs for asynchronous delivery.
type EmailQueue interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// EmailDeliverer performs delivery of a dequeued job.
type EmailDeliverer interface {
	Deliver(ctx context.Context, job EmailJob) error
}
