package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is a single outbound report email.
type Message struct {
	To         string
	CC         string
	Subject    string
	Body       string
	Attachment []byte
	AttachName string
}

// Mailer delivers report emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends mail over SMTP with STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
	log *logrus.Logger
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig, log *logrus.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

// Send delivers one message. The context deadline bounds the whole SMTP
// conversation.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient address is required")
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if m.cfg.User != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to failed: %w", err)
	}
	if msg.CC != "" {
		if err := client.Rcpt(msg.CC); err != nil {
			return fmt.Errorf("smtp rcpt cc failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}
	if _, err := w.Write(BuildMIMEMessage(m.cfg.From, msg)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		m.log.WithError(err).Debug("smtp quit returned an error")
	}

	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Report email sent")

	return nil
}

// BuildMIMEMessage assembles an RFC 2045 multipart message with an
// optional PDF attachment.
func BuildMIMEMessage(from string, msg Message) []byte {
	var buf bytes.Buffer

	boundary := "cybrscan-report-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	if msg.CC != "" {
		fmt.Fprintf(&buf, "Cc: %s\r\n", msg.CC)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachment) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.Body)
		buf.WriteString("\r\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	name := msg.AttachName
	if name == "" {
		name = "report.pdf"
	}
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: application/pdf\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)

	encoded := base64.StdEncoding.EncodeToString(msg.Attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes()
}
