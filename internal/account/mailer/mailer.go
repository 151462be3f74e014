// Package mailer delivers one-time codes by email.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher sends a message or reports why it could not.
type Dispatcher interface {
	Send(ctx context.Context, m Message) error
}

// OTPMessage is the verification mail sent for signups and password resets.
func OTPMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Your OTP Code",
		Body:    fmt.Sprintf("Your OTP code is: %s", code),
	}
}

// LogDispatcher writes messages to the log instead of sending them. It is
// meant for development setups without an SMTP relay.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d *LogDispatcher) Send(ctx context.Context, m Message) error {
	d.Logger.InfoContext(ctx, "email not sent, log dispatcher in use",
		"to", m.To,
		"subject", m.Subject,
		"body", m.Body,
	)
	return nil
}
