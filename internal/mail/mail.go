// Package mail delivers confirmation codes out-of-band. Delivery is
// fire-and-forget for the signup flow; failures are logged, never surfaced.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/config"
)

type Sender interface {
	Send(recipient, subject, body string) error
}

type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		from: cfg.MailFrom,
		auth: auth,
	}
}

func (s *SMTPSender) Send(recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, recipient, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{recipient}, []byte(msg)); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}

// LogSender stands in for a real transport in dev setups and tests.
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(recipient, subject, body string) error {
	s.logger.Infow("mail dispatch (log transport)",
		"recipient", recipient,
		"subject", subject,
	)
	return nil
}

// NewSender picks the transport from config.
func NewSender(cfg *config.Config, logger *zap.SugaredLogger) Sender {
	if cfg.MailEnabled {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger)
}
