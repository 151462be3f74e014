package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"
)

// implicitTLSPort is the submissions port, where TLS starts before SMTP.
const implicitTLSPort = 465

// SMTPDispatcher relays mail through an authenticated SMTP server.
type SMTPDispatcher struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username

	// Timeout bounds the whole exchange when ctx has no deadline.
	Timeout time.Duration
}

func (d *SMTPDispatcher) from() string {
	if d.From != "" {
		return d.From
	}
	return d.Username
}

func (d *SMTPDispatcher) Send(ctx context.Context, m Message) error {
	from, err := mail.ParseAddress(d.from())
	if err != nil {
		return fmt.Errorf("mailer: invalid sender email: %w", err)
	}
	to, err := mail.ParseAddress(m.To)
	if err != nil {
		return fmt.Errorf("mailer: invalid recipient email: %w", err)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := d.dial(ctx)
	if err != nil {
		return fmt.Errorf("mailer: failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mailer: smtp handshake: %w", err)
	}
	defer c.Close()

	if d.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: d.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return fmt.Errorf("mailer: starttls: %w", err)
			}
		}
	}

	if d.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("mailer: server does not support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", d.Username, d.Password, d.Host)); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to.Address); err != nil {
		return fmt.Errorf("mailer: RCPT TO: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write(compose(from, to, m)); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}

	return c.Quit()
}

func (d *SMTPDispatcher) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	nd := &net.Dialer{}

	if d.Port == implicitTLSPort {
		td := &tls.Dialer{
			NetDialer: nd,
			Config:    &tls.Config{ServerName: d.Host, MinVersion: tls.VersionTLS12},
		}
		return td.DialContext(ctx, "tcp", addr)
	}
	return nd.DialContext(ctx, "tcp", addr)
}

// compose renders a minimal RFC 5322 text/plain message.
func compose(from, to *mail.Address, m Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return b.Bytes()
}
