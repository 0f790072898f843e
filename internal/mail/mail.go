// Package mail delivers outbound email.
//
// The application only ever sends one kind of message (a login link), but it
// goes through the Sender interface so that:
//   - production talks SMTP (SMTPSender, built on gopkg.in/gomail.v2)
//   - local development with no SMTP server just logs the message (LogSender)
//   - tests capture messages in memory and read them back (Outbox)
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// compile-time checks
var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*LogSender)(nil)
	_ Sender = (*Outbox)(nil)
)

// =========================================================================
// SMTP
// =========================================================================

// SMTPConfig holds the SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender sends mail through an SMTP server.
type SMTPSender struct {
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPSender creates an SMTPSender. The connection is opened per message,
// so a misconfigured server shows up on the first Send, not here.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("mail: invalid smtp port %d", cfg.Port)
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}, nil
}

// Send dials the server, delivers msg, and hangs up.
//
// gomail doesn't take a context, so cancellation is only checked before
// dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", msg.To, err)
	}

	s.logger.Info("mail sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// =========================================================================
// LOG
// =========================================================================

// LogSender "sends" mail by writing it to the logger. Handy in development:
// the login link shows up in the server output.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail (not delivered)",
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// =========================================================================
// OUTBOX
// =========================================================================

// Outbox keeps every message in memory. Safe for concurrent use.
//
// Set Err to make every Send fail, for exercising delivery errors.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// NewOutbox creates an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Last returns the most recent message, or false if nothing was sent.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}
