package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/avelic/skyfare/config"
	"github.com/avelic/skyfare/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender turns notification events into emails. Delivery is best effort:
// callers log failures and move on, never failing a financial operation.
type Sender struct {
	cfg config.MailConfig
	log *logrus.Logger
}

func NewSender(cfg config.MailConfig, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	if event.Email == "" {
		s.log.WithField("type", event.Type).Debug("email: event without recipient, skipping")
		return nil
	}

	subject, body := render(event)
	if subject == "" {
		return nil
	}

	if !s.cfg.Enabled {
		s.log.WithFields(logrus.Fields{"to": event.Email, "subject": subject}).Info("email: mail disabled, skipping send")
		return nil
	}

	msg := buildMessage(s.cfg.From, event.Email, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{event.Email}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", event.Email, err)
	}
	return nil
}

func render(event kafka.Event) (subject, body string) {
	switch event.Type {
	case kafka.EventPurchaseCompleted:
		return "Your ticket is confirmed", purchaseConfirmedBody(event)
	case kafka.EventPurchaseFailed:
		return "Your purchase could not be processed", purchaseFailedBody(event)
	case kafka.EventPurchaseCancelled:
		return "Your purchase was cancelled", purchaseCancelledBody(event)
	case kafka.EventFlightCancelled:
		return "Flight cancelled", flightCancelledBody(event)
	}
	return "", ""
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
