package services

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"growjournal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailService(cfg config.MailConfig) (*MailService, chan capturedMail) {
	sent := make(chan capturedMail, 4)
	s := NewMailService(cfg)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent <- capturedMail{addr: addr, from: from, to: to, msg: string(msg)}
		return nil
	}
	return s, sent
}

func TestMailServiceSendsMagicLink(t *testing.T) {
	s, sent := newTestMailService(config.MailConfig{
		Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "noreply@example.com",
	})

	s.SendMagicLink("grower@example.com", "https://grow.example.com/api/auth/email/callback?token=abc")

	select {
	case m := <-sent:
		assert.Equal(t, "smtp.example.com:587", m.addr)
		assert.Equal(t, "noreply@example.com", m.from)
		assert.Equal(t, []string{"grower@example.com"}, m.to)
		assert.Contains(t, m.msg, "Subject: Sign in to Grow Journal")
		assert.Contains(t, m.msg, "token=abc")
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not sent")
	}
}

func TestMailServiceEscapesReplyContent(t *testing.T) {
	s, sent := newTestMailService(config.MailConfig{
		Host: "smtp.example.com", Port: "25", Username: "u", Password: "p", From: "noreply@example.com",
	})

	s.SendReplyNotification("a@example.com", "bob", "Tent #1", "<b>hi</b>", "question", "https://grow.example.com/reports/1#post-2")

	select {
	case m := <-sent:
		assert.Contains(t, m.msg, "bob replied to your comment")
		assert.Contains(t, m.msg, "&lt;b&gt;hi&lt;/b&gt;")
		assert.True(t, strings.Contains(m.msg, "reports/1#post-2"))
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not sent")
	}
}

func TestMailServiceDisabled(t *testing.T) {
	s, sent := newTestMailService(config.MailConfig{})
	s.SendMagicLink("grower@example.com", "https://example.com")

	select {
	case <-sent:
		t.Fatal("disabled mail service must not send")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMailTemplatesParse(t *testing.T) {
	s := NewMailService(config.MailConfig{})
	body, err := s.render("magic_link.html", map[string]string{"Link": "https://x"})
	require.NoError(t, err)
	assert.Contains(t, body, `href="https://x"`)
}
