package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// EmailDelivery sends dequeued jobs. It is shared by the in-process
// dispatcher and the asynq worker.
type EmailDelivery struct {
	mailer  ports.Mailer
	storage ports.FileStorage
	audit   *SystemLogger
	log     zerolog.Logger
}

func NewEmailDelivery(mailer ports.Mailer, storage ports.FileStorage, audit *SystemLogger, log zerolog.Logger) *EmailDelivery {
	return &EmailDelivery{mailer: mailer, storage: storage, audit: audit, log: log}
}

// Deliver resolves storage-backed attachments and sends the message. A
// returned error means the attempt may be retried. Disabled delivery is
// logged as failed but not retried, and a failed attempt with
// job.WillRetry set is not logged at all.
func (d *EmailDelivery) Deliver(ctx context.Context, job ports.EmailJob) error {
	msg := job.Message
	msg.Attachments = make([]ports.Attachment, 0, len(job.Message.Attachments))
	for _, a := range job.Message.Attachments {
		if len(a.Data) == 0 && a.StorageKey != "" {
			data, err := d.storage.Get(ctx, a.StorageKey)
			if err != nil {
				d.log.Warn().Err(err).Str("key", a.StorageKey).Str("kind", job.Kind).Msg("attachment unavailable, sending without it")
				continue
			}
			a.Data = data
		}
		msg.Attachments = append(msg.Attachments, a)
	}

	res := d.mailer.Send(ctx, msg)
	details := map[string]any{"messageId": res.MessageID, "attachments": len(msg.Attachments)}
	if res.Success {
		metrics.EmailsTotal.WithLabelValues(job.Kind, "sent").Inc()
		d.audit.Email(ctx, "sent", job, details, nil)
		return nil
	}

	errMsg := res.Error
	if errMsg == "" {
		errMsg = "email delivery failed"
	}
	sendErr := errors.New(errMsg)
	if job.WillRetry && !res.Disabled {
		metrics.EmailsTotal.WithLabelValues(job.Kind, "retried").Inc()
		d.log.Warn().Str("kind", job.Kind).Str("ref", job.Ref).Str("error", errMsg).Msg("email attempt failed")
		return fmt.Errorf("send %s: %w", job.Kind, sendErr)
	}
	metrics.EmailsTotal.WithLabelValues(job.Kind, "failed").Inc()
	d.audit.Email(ctx, "failed", job, details, sendErr)
	if res.Disabled {
		return nil
	}
	return fmt.Errorf("send %s: %w", job.Kind, sendErr)
}
