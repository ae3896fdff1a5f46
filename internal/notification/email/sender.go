// Package email delivers notification copies over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"net"
	"time"

	"caseflow_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers notification emails via a direct SMTP connection.
type Sender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

// NewSender builds a Sender from config, or nil when SMTP is not configured.
func NewSender(cfg config.EmailConfig) *Sender {
	if !cfg.IsEmailEnabled() {
		return nil
	}
	return &Sender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendNotification sends a plain notification email. The url, when set,
// is rendered as a call-to-action link.
func (s *Sender) SendNotification(ctx context.Context, toEmail, title, body, url string) error {
	if s == nil {
		return fmt.Errorf("email sender not configured")
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(title)
	msg.SetBodyString(gomail.TypeTextHTML, renderBody(title, body, url))

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func renderBody(title, body, url string) string {
	cta := ""
	if url != "" {
		cta = fmt.Sprintf(`<p><a href="%s">Open in portal</a></p>`, html.EscapeString(url))
	}
	return fmt.Sprintf(
		`<html><body><h2>%s</h2><p>%s</p>%s</body></html>`,
		html.EscapeString(title), html.EscapeString(body), cta,
	)
}
