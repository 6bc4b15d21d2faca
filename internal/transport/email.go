package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPEmail sends reminder email via unauthenticated SMTP
// (Mailpit-compatible in development).
type SMTPEmail struct {
	addr    string
	from    string
	subject string
}

func NewSMTPEmail(host string, port string, from string, subject string) *SMTPEmail {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@clinicremind.local"
	}
	if strings.TrimSpace(subject) == "" {
		subject = "Appointment reminder"
	}
	return &SMTPEmail{
		addr:    fmt.Sprintf("%s:%s", host, port),
		from:    from,
		subject: subject,
	}
}

func (s *SMTPEmail) Send(_ context.Context, to string, message string) error {
	msg := buildMessage(s.from, to, s.subject, message)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}
