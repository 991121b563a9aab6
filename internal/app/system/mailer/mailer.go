// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config for SMTP delivery. An empty Host selects the log-only sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// New returns an SMTP sender, or a LogSender when cfg.Host is empty.
func New(cfg Config, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{Log: logger}
	}
	return &SMTPSender{cfg: cfg, log: logger}
}

// SMTPSender sends through a plain SMTP relay with optional PLAIN auth.
type SMTPSender struct {
	cfg Config
	log *zap.Logger
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := buildMessage(s.cfg.From, s.cfg.FromName, e)

	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, s.cfg.From, []string{e.To}, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", e.To, err)
		}
		s.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Log  *zap.Logger
	Sent []Email
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.Sent = append(s.Sent, e)
	s.Log.Info("email (not sent, smtp not configured)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody),
	)
	return nil
}

func buildMessage(from, fromName string, e Email) []byte {
	boundary := "tf-" + uuid.NewString()
	fromHdr := from
	if fromName != "" {
		fromHdr = mime.QEncoding.Encode("utf-8", fromName) + " <" + from + ">"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", fromHdr)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	if e.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(e.TextBody)
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, e.TextBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, e.HTMLBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
