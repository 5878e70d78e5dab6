// Package notifier performs the actual delivery of a notification through
// a channel provider.  The Sender interface is the seam: SMTP for email,
// a log sink for everything without a configured provider.
package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// Sender delivers one message to one recipient address over a channel.
type Sender interface {
	Send(ctx context.Context, channel model.Channel, to, subject, body string) error
}

// LogSender writes deliveries to the log.  It backs the sms/push channels,
// which have no provider in this deployment, and serves as the email
// fallback in development.
type LogSender struct {
	Log *zap.SugaredLogger
}

// NewLogSender returns a LogSender over the given logger.
func NewLogSender(log *zap.SugaredLogger) *LogSender {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogSender{Log: log}
}

// Send logs the delivery and reports success.
func (s *LogSender) Send(_ context.Context, channel model.Channel, to, subject, body string) error {
	s.Log.Infow("notification delivered", "channel", channel, "to", to, "subject", subject, "body", body)
	return nil
}

// SMTPSender delivers email notifications through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth // nil for unauthenticated relays
}

// NewSMTPSender builds an SMTPSender.  Auth is configured when a username
// is given.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	s := &SMTPSender{
		Addr: fmt.Sprintf("%s:%d", host, port),
		From: from,
	}
	if username != "" {
		s.Auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

// Send delivers one email.  Channels other than email are refused so a
// misrouted job surfaces as a delivery failure rather than a silent drop.
func (s *SMTPSender) Send(_ context.Context, channel model.Channel, to, subject, body string) error {
	if channel != model.ChannelEmail {
		return fmt.Errorf("smtp sender cannot deliver channel %q", channel)
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
