// Package email delivers rendered messages over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	ModeSMTP     = "smtp"
	ModeDisabled = "disabled"

	dialTimeout = 15 * time.Second
)

var errNotConfigured = errors.New("smtp host not configured")

// Config holds SMTP settings. Disabled short-circuits every send.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	StartTLS bool
	Disabled bool
}

// Sender implements ports.Mailer on top of go-mail.
type Sender struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time
}

func NewSender(cfg Config, log zerolog.Logger) *Sender {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Sender{cfg: cfg, log: log, now: time.Now}
}

// Enabled reports whether Send talks to a server.
func (s *Sender) Enabled() bool {
	return !s.cfg.Disabled
}

func (s *Sender) Send(ctx context.Context, msg ports.EmailMessage) ports.EmailResult {
	if s.cfg.Disabled {
		id := fmt.Sprintf("stub-%d-%s", s.now().UnixMilli(), randomSuffix())
		s.log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Str("message_id", id).Msg("email sending disabled, message not sent")
		return ports.EmailResult{
			Success:   false,
			Disabled:  true,
			MessageID: id,
			Error:     "Email sending disabled in test/CI environment",
		}
	}

	fail := func(err error) ports.EmailResult {
		s.log.Error().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("email send failed")
		return ports.EmailResult{
			Success:   false,
			MessageID: "stub-fallback-" + strconv.FormatInt(s.now().UnixMilli(), 10),
			Error:     err.Error(),
		}
	}

	m, id, err := s.buildMsg(msg)
	if err != nil {
		return fail(err)
	}
	client, err := s.client()
	if err != nil {
		return fail(err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fail(fmt.Errorf("smtp send: %w", err))
	}

	s.log.Info().Strs("to", msg.To).Str("message_id", id).Msg("email sent")
	return ports.EmailResult{Success: true, MessageID: id}
}

// Verify dials the server and closes the connection.
func (s *Sender) Verify(ctx context.Context) error {
	if s.cfg.Disabled {
		return nil
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp verify: %w", err)
	}
	return client.Close()
}

func (s *Sender) client() (*mail.Client, error) {
	if s.cfg.Host == "" {
		return nil, errNotConfigured
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(dialTimeout),
	}
	if s.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

// buildMsg assembles the MIME message: text body with an HTML alternative
// and inline attachment data.
func (s *Sender) buildMsg(msg ports.EmailMessage) (*mail.Msg, string, error) {
	if len(msg.To) == 0 {
		return nil, "", errors.New("email has no recipients")
	}
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, "", fmt.Errorf("from address %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, "", fmt.Errorf("recipients: %w", err)
	}
	m.Subject(msg.Subject)

	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	m.SetBodyString(mail.TypeTextPlain, text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	for _, a := range msg.Attachments {
		if len(a.Data) == 0 {
			continue
		}
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	id := fmt.Sprintf("%d.%s@partpulse", s.now().UnixNano(), randomSuffix())
	m.SetMessageIDWithValue(id)
	return m, id, nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var _ ports.Mailer = (*Sender)(nil)
