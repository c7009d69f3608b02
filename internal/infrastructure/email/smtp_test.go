package email

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partpulse/partpulse/internal/core/ports"
)

func fixedNow() time.Time { return time.UnixMilli(1700000000123) }

func TestSendDisabledReturnsStubResult(t *testing.T) {
	s := NewSender(Config{Disabled: true}, zerolog.Nop())
	s.now = fixedNow

	res := s.Send(context.Background(), ports.EmailMessage{To: []string{"a@example.com"}, Subject: "hi"})

	assert.False(t, res.Success)
	assert.True(t, res.Disabled)
	assert.Equal(t, "Email sending disabled in test/CI environment", res.Error)
	assert.Regexp(t, regexp.MustCompile(`^stub-1700000000123-[0-9a-f]{8}$`), res.MessageID)
	assert.NoError(t, s.Verify(context.Background()))
	assert.False(t, s.Enabled())
}

func TestSendWithoutHostFallsBack(t *testing.T) {
	s := NewSender(Config{User: "mailer@example.com"}, zerolog.Nop())
	s.now = fixedNow

	res := s.Send(context.Background(), ports.EmailMessage{To: []string{"a@example.com"}, Subject: "hi", Text: "body"})

	assert.False(t, res.Success)
	assert.False(t, res.Disabled)
	assert.Equal(t, "stub-fallback-1700000000123", res.MessageID)
	assert.Contains(t, res.Error, "smtp host not configured")
}

func TestFromFallsBackToSMTPUser(t *testing.T) {
	s := NewSender(Config{User: "mailer@example.com"}, zerolog.Nop())
	assert.Equal(t, "mailer@example.com", s.cfg.From)

	s = NewSender(Config{User: "mailer@example.com", From: "PartPulse <noreply@example.com>"}, zerolog.Nop())
	assert.Equal(t, "PartPulse <noreply@example.com>", s.cfg.From)
	assert.Equal(t, 587, s.cfg.Port)
}

func TestBuildMsg(t *testing.T) {
	s := NewSender(Config{From: "noreply@example.com"}, zerolog.Nop())

	m, id, err := s.buildMsg(ports.EmailMessage{
		To:      []string{"tech@example.com", "admin@example.com"},
		Subject: "Internal Transfer Confirmation - t-1",
		HTML:    "<p>Thanks</p>",
		Text:    "Thanks",
		Attachments: []ports.Attachment{
			{Filename: "transfer-t-1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3 test")},
			{Filename: "unresolved.pdf", StorageKey: "pdfs/missing.pdf"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, id, "@partpulse")

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Internal Transfer Confirmation - t-1")
	assert.Contains(t, raw, "tech@example.com")
	assert.Contains(t, raw, "transfer-t-1.pdf")
	assert.NotContains(t, raw, "unresolved.pdf")
	assert.Contains(t, raw, "text/html")
}

func TestBuildMsgRejectsBadInput(t *testing.T) {
	s := NewSender(Config{From: "noreply@example.com"}, zerolog.Nop())
	_, _, err := s.buildMsg(ports.EmailMessage{Subject: "nobody"})
	require.Error(t, err)

	s = NewSender(Config{From: "not an address"}, zerolog.Nop())
	_, _, err = s.buildMsg(ports.EmailMessage{To: []string{"a@example.com"}})
	require.Error(t, err)
}
