package notify

import (
	"context"
	"fmt"
	"grievance/backend/internal/config"
	"grievance/backend/internal/deadline"
	"grievance/backend/internal/localization"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders notifications from the localization catalogue and sends them over SMTP.
type Mailer struct {
	Addr      string
	Auth      smtp.Auth
	From      string
	Lang      string
	Localizer *localization.Localizer
	Send      SendFunc
}

func NewMailer(cfg *config.Config, loc *localization.Localizer) *Mailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &Mailer{
		Addr:      net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		Auth:      auth,
		From:      cfg.MailFrom,
		Lang:      localization.DefaultLanguage,
		Localizer: loc,
		Send:      smtp.SendMail,
	}
}

type templateData struct {
	Message
	Deadline string
}

// Compose returns the subject and plain-text body for msg.
func (m *Mailer) Compose(msg Message) (string, string, error) {
	data := templateData{Message: msg}
	if !msg.Deadline.IsZero() {
		data.Deadline = msg.Deadline.In(deadline.Location).Format("Mon 02 Jan 2006 15:04 MST")
	}
	key := msg.Kind.TemplateKey()

	subject, err := m.Localizer.Render(m.Lang, key+"_subject", data)
	if err != nil {
		return "", "", err
	}
	body, err := m.Localizer.Render(m.Lang, key+"_body", data)
	if err != nil {
		return "", "", err
	}
	return subject, body + "\n\n" + m.Localizer.GetString(m.Lang, "mail_signature"), nil
}

func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientEmail == "" {
		return fmt.Errorf("notification %s: recipient %d has no email", msg.ID, msg.RecipientID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := m.Compose(msg)
	if err != nil {
		return fmt.Errorf("compose %s mail: %w", msg.Kind, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.RecipientEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	if err := m.Send(m.Addr, m.Auth, m.From, []string{msg.RecipientEmail}, []byte(b.String())); err != nil {
		return fmt.Errorf("send %s mail to %s: %w", msg.Kind, msg.RecipientEmail, err)
	}
	return nil
}
