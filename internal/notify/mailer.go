package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"os"
	"strings"
)

// SMTPConfig configures the email sink.
type SMTPConfig struct {
	Host      string // e.g. smtp.gmail.com
	Port      int    // e.g. 587
	Sender    string
	Password  string // app password for the sender account
	Recipient string
}

// configured reports whether enough is set to attempt delivery. Matching
// the deployment scripts, a partially configured mailer skips sending
// rather than failing the run.
func (c SMTPConfig) configured() bool {
	return c.Sender != "" && c.Password != "" && c.Recipient != ""
}

// Mailer delivers sync outcomes by email over SMTP with STARTTLS.
type Mailer struct {
	cfg    SMTPConfig
	logger *log.Logger
}

// NewMailer creates an email sink.
//
// If logger is nil, a default logger writing to stderr is used.
func NewMailer(cfg SMTPConfig, logger *log.Logger) *Mailer {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger,
	}
}

// Notify implements Sink. When the mailer is not fully configured the
// message is skipped with a warning instead of returning an error.
func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	if !m.cfg.configured() {
		m.logger.Printf("WARNING: email configuration missing, skipping notification")
		return nil
	}

	subject, body := renderMail(msg)

	var d net.Dialer
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() {
		if err := c.Quit(); err != nil {
			m.logger.Printf("WARNING: failed to close SMTP connection: %v", err)
		}
	}()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Host)
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := c.Mail(m.cfg.Sender); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := c.Rcpt(m.cfg.Recipient); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", m.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	if _, err := w.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	m.logger.Printf("Email notification sent to %s", m.cfg.Recipient)
	return nil
}

// renderMail formats the subject and plain-text body for one outcome.
func renderMail(msg Message) (subject, body string) {
	window := fmt.Sprintf("%s to %s", msg.Start, msg.End)

	if msg.Success {
		subject = fmt.Sprintf("✅ AGRITRACER - Data Sync Success - %s", window)
		body = fmt.Sprintf(
			"Data synchronization completed successfully!\n\n"+
				"Kind: %s\nPeriod: %s\nRecords processed: %d\n\n"+
				"This is an automated message.\n",
			msg.Kind, window, msg.RowsProcessed)
		return subject, body
	}

	subject = fmt.Sprintf("❌ AGRITRACER - Data Sync Error - %s", window)
	body = fmt.Sprintf(
		"Data synchronization failed!\n\n"+
			"Kind: %s\nPeriod: %s\nError: %s\n\n"+
			"Please check the logs for more details.\n"+
			"This is an automated message.\n",
		msg.Kind, window, msg.ErrorText)
	return subject, body
}
