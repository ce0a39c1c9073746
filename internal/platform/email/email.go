// Package email delivers plain-text notices to data subjects over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketingops/internal/platform/config"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	return nil
}

// Settings is the SMTP relay used for outbound notices.
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	StartTLS bool
	Timeout  time.Duration
}

func (s Settings) addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type smtpMailer struct {
	settings Settings
	now      func() time.Time
}

// New returns an SMTP mailer, or a mailer that drops everything when email is
// disabled or no relay is configured.
func New(cfg config.Config) Mailer {
	if !cfg.EmailEnabled || strings.TrimSpace(cfg.SMTPHost) == "" {
		return noopMailer{}
	}
	return &smtpMailer{
		settings: Settings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			StartTLS: cfg.SMTPUseTLS,
			Timeout:  10 * time.Second,
		},
		now: time.Now,
	}
}

func (s *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	msg := composeMessage(sender, rcpt, subject, body, s.now())

	dialer := net.Dialer{Timeout: s.settings.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.settings.addr())
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if s.settings.Timeout > 0 {
		_ = conn.SetDeadline(s.now().Add(s.settings.Timeout))
	}

	client, err := smtp.NewClient(conn, s.settings.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.settings.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.settings.Username != "" {
		auth := smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(sender.Address); err != nil {
		return err
	}
	if err := client.Rcpt(rcpt.Address); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// composeMessage renders an RFC 5322 message. Notices are marked as
// auto-submitted so that responders do not reply to them.
func composeMessage(from, to *mail.Address, subject, body string, at time.Time) []byte {
	domain := "localhost"
	if i := strings.LastIndex(from.Address, "@"); i >= 0 {
		domain = from.Address[i+1:]
	}
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", from.String())
	header("To", to.String())
	header("Subject", oneLine(subject))
	header("Date", at.Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("Auto-Submitted", "auto-generated")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func oneLine(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
