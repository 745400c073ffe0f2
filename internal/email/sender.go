package email

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender simulates delivery: it waits a short random delay and logs the
// message.
type LogSender struct {
	logger   *slog.Logger
	minDelay time.Duration
	jitter   time.Duration
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger, minDelay: 50 * time.Millisecond, jitter: 150 * time.Millisecond}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	delay := s.minDelay
	if s.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(s.jitter) + 1))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "simulated", true)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	if err := s.send(addr, a, s.cfg.From, []string{msg.To}, s.format(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (s *SMTPSender) format(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
