package notifier

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends transactional email: welcome on registration,
// verification outcome to pharmacy admins.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendCustom(ctx context.Context, to, subject, body string) error
}

// SMTPConfig configures the outbound mail account
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) Mailer {
	return &smtpMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *smtpMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Bonjour %s,\n\nVotre compte MediGo est créé. Trouvez les pharmacies de garde et réservez vos médicaments depuis l'application.\n\nL'équipe MediGo", name)
	return m.SendCustom(ctx, to, "Bienvenue sur MediGo", body)
}

func (m *smtpMailer) SendCustom(_ context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopMailer is used when SMTP is not configured
type NoopMailer struct{}

func (NoopMailer) SendWelcome(context.Context, string, string) error        { return nil }
func (NoopMailer) SendCustom(context.Context, string, string, string) error { return nil }
