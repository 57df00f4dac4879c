package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	config "github.com/stockmart/notifier/internal/config/notifier"
	"github.com/stockmart/notifier/internal/domain/notification"
)

const mimeBoundary = "=_notifier_alt_boundary"

var _ notification.EmailSender = (*Mailer)(nil)

// Mailer delivers multipart (HTML + plain text) mail over SMTP. It holds no
// state beyond the transport configuration captured at construction.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	fromName string
	useTLS   bool
	timeout  time.Duration

	log *zap.Logger
}

func NewMailer(cfg config.SMTP, log *zap.Logger) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		useTLS:   cfg.UseTLS,
		timeout:  cfg.Timeout,
		log:      log.With(zap.String("component", "notifier.mailer")),
	}
}

// Send reports delivery as a boolean. Missing credentials or sender address
// short-circuit with a warning; transport errors are logged with the failing
// recipient. Neither case ever reaches the caller as an error.
func (m *Mailer) Send(_ context.Context, msg notification.Email) bool {
	if m.user == "" || m.password == "" || m.from == "" {
		m.log.Warn("smtp configuration incomplete; cannot send email", zap.String("to", msg.To))
		return false
	}

	body := m.buildMessage(msg)
	recipients := append([]string{msg.To}, msg.CC...)
	recipients = append(recipients, msg.BCC...)
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", addr),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)

	auth := smtp.PlainAuth("", m.user, m.password, m.host)

	var err error
	if m.useTLS {
		err = m.sendTLS(addr, auth, recipients, body)
	} else {
		err = smtp.SendMail(addr, auth, m.from, recipients, body)
	}
	if err != nil {
		log.Error("email send failed", zap.Error(err))
		return false
	}

	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return true
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, recipients []string, body []byte) error {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := tls.DialWithDialer(&dialer, "tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}

// buildMessage assembles a multipart/alternative body. BCC recipients go on
// the transport envelope only, never into a visible header.
func (m *Mailer) buildMessage(msg notification.Email) []byte {
	text := msg.Text
	if text == "" {
		text = htmlToText(msg.HTML)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.fromName, m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if len(msg.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}

// htmlToText derives a plain-text fallback by stripping line-break and
// paragraph tags. A heuristic, not a full HTML-to-text conversion.
func htmlToText(s string) string {
	return strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<p>", "\n",
		"</p>", "\n",
	).Replace(s)
}
