package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"growjournal/internal/config"

	log "github.com/sirupsen/logrus"
)

//go:embed mailtemplates/*.html
var mailTemplates embed.FS

// Mailer delivers the transactional emails.
type Mailer interface {
	SendMagicLink(email, link string)
	SendReplyNotification(email, actorName, reportTitle, replyContent, originalContent, postLink string)
}

type MailService struct {
	cfg       config.MailConfig
	templates *template.Template
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg config.MailConfig) *MailService {
	if !cfg.Enabled() {
		log.Warn("MailService disabled: missing SMTP configuration")
	}
	return &MailService{
		cfg:       cfg,
		templates: template.Must(template.ParseFS(mailTemplates, "mailtemplates/*.html")),
		send:      smtp.SendMail,
	}
}

func (s *MailService) buildMessage(to []string, subject, body string) []byte {
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: Grow Journal <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.cfg.From, subject, mime, body))
}

func (s *MailService) deliver(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	return s.send(addr, auth, s.cfg.From, to, s.buildMessage(to, subject, body))
}

func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.cfg.Enabled() {
		log.WithFields(log.Fields{"to": to, "subject": subject}).Debug("mail disabled, dropping message")
		return
	}

	go func() {
		if err := s.deliver(to, subject, body); err != nil {
			log.WithError(err).WithField("to", to).Error("Failed to send email")
			return
		}
		log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent")
	}()
}

func (s *MailService) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *MailService) SendMagicLink(email, link string) {
	body, err := s.render("magic_link.html", map[string]string{"Link": link})
	if err != nil {
		log.WithError(err).Error("Error rendering magic link email")
		return
	}
	s.sendAsync([]string{email}, "Sign in to Grow Journal", body)
}

func (s *MailService) SendReplyNotification(email, actorName, reportTitle, replyContent, originalContent, postLink string) {
	body, err := s.render("reply.html", map[string]string{
		"ActiveUser":      actorName,
		"ReportTitle":     reportTitle,
		"ReplyContent":    replyContent,
		"OriginalContent": originalContent,
		"PostLink":        postLink,
	})
	if err != nil {
		log.WithError(err).Error("Error rendering reply email")
		return
	}
	s.sendAsync([]string{email}, actorName+" replied to your comment on \""+reportTitle+"\"", body)
}
