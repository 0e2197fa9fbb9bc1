// Package notifier delivers transactional email.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/logger"
	"gopkg.in/gomail.v2"
)

var ErrDisabled = errors.New("email delivery is not configured")

const defaultMaxTries = 3

// SMTPMailer sends mail through an SMTP relay, retrying transient failures with
// exponential backoff.
type SMTPMailer struct {
	from     string
	send     func(msgs ...*gomail.Message) error
	maxTries uint
	newBack  func() backoff.BackOff
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &SMTPMailer{
		from:     cfg.From,
		send:     d.DialAndSend,
		maxTries: defaultMaxTries,
		newBack: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 4 * time.Second
			return b
		},
	}
}

func (m *SMTPMailer) deliver(ctx context.Context, msg *gomail.Message) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := m.send(msg); err != nil {
			logger.Warn(ctx, "email delivery attempt failed", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(m.newBack()),
		backoff.WithMaxTries(m.maxTries),
	)
	return err
}

func (m *SMTPMailer) SendInvoice(ctx context.Context, to, orderID string, pdf []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your Order Invoice")
	msg.SetBody("text/plain", "Thank you for your order! Please find your invoice attached.")
	msg.Attach(fmt.Sprintf("invoice-%s.pdf", orderID), gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}))

	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("send invoice to %s: %w", to, err)
	}
	logger.Info(ctx, "invoice emailed", "to", to, "order_id", orderID)
	return nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset Password")
	msg.SetBody("text/plain", "Use the link below to reset your password. It expires in 15 minutes.\n\n"+resetURL)

	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("send password reset to %s: %w", to, err)
	}
	return nil
}

// Disabled is used when no SMTP relay is configured.
type Disabled struct{}

func (Disabled) SendInvoice(ctx context.Context, to, orderID string, _ []byte) error {
	logger.Warn(ctx, "invoice not emailed, smtp disabled", "to", to, "order_id", orderID)
	return ErrDisabled
}

func (Disabled) SendPasswordReset(ctx context.Context, to, _ string) error {
	logger.Warn(ctx, "password reset not emailed, smtp disabled", "to", to)
	return ErrDisabled
}
