// Package mail delivers outbound email through a configurable backend.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

const sendTimeout = 15 * time.Second

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the backend selected by cfg.Backend.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Backend {
	case "", "console":
		return NewConsoleSender(cfg.From, logger), nil
	case "smtp":
		return NewSMTPSender(cfg)
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// ConsoleSender writes messages to the log instead of sending them.
type ConsoleSender struct {
	from   string
	logger *zap.Logger
}

// NewConsoleSender builds a ConsoleSender.
func NewConsoleSender(from string, logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{from: from, logger: logger}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("from", s.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// SMTPSender delivers through an SMTP relay. STARTTLS is used when the relay
// offers it and PLAIN auth when credentials are set.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

// NewSMTPSender builds an SMTPSender.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(sendTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password))
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := Compose(s.from, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// Compose builds the plain-text message. Non-ASCII headers are encoded and
// Date and Message-ID are set.
func Compose(from string, msg Message) (*gomail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("mail: no recipients")
	}
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail: from %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("mail: to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}
