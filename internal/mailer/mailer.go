package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"carenest-server/internal/config"
)

// Mailer delivers account emails.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}

// New returns an SMTP mailer when credentials are configured and a log-only
// mailer otherwise.
func New(cfg config.MailerConfig, log *zap.Logger) Mailer {
	if cfg.Username == "" || cfg.Password == "" {
		log.Warn("email credentials not configured, emails will only be logged")
		return &LogMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

var (
	otpTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #007bff;">CareNest - Your Health, Our Priority</h2>
  <p>Dear User,</p>
  <p>Your One-Time Password (OTP) for email verification is:</p>
  <div style="background-color: #f0f0f0; padding: 20px; text-align: center; margin: 20px 0; border-radius: 5px;">
    <h1 style="color: #007bff; letter-spacing: 5px;">{{.OTP}}</h1>
  </div>
  <p>This OTP is valid for {{.Minutes}} minutes. Do not share this with anyone.</p>
  <p>If you didn't request this, please ignore this email.</p>
  <p>Best regards,<br/>CareNest Team</p>
</div>`))

	resetTemplate = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #007bff;">CareNest - Password Reset</h2>
  <p>Dear User,</p>
  <p>We received a request to reset your password. Click the button below to reset it.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.URL}}" style="background-color: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
  </div>
  <p>Or copy and paste this link in your browser:</p>
  <p style="word-break: break-all; color: #666;">{{.URL}}</p>
  <p><strong>This link will expire in {{.Minutes}} minutes.</strong></p>
  <p>If you didn't request this, please ignore this email and your password will remain unchanged.</p>
  <p>Best regards,<br/>CareNest Team</p>
</div>`))
)

type otpData struct {
	OTP     string
	Minutes int
}

type resetData struct {
	URL     string
	Minutes int
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg config.MailerConfig
	log *zap.Logger
}

func (m *SMTPMailer) SendOTP(ctx context.Context, email, otp string) error {
	body, err := render(otpTemplate, otpData{OTP: otp, Minutes: m.cfg.OTPExpiryMinutes})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "CareNest - Email Verification OTP", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	body, err := render(resetTemplate, resetData{URL: resetURL, Minutes: m.cfg.ResetExpiryMinutes})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "CareNest - Password Reset Request", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogMailer writes codes and links to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func (m *LogMailer) SendOTP(_ context.Context, email, otp string) error {
	m.log.Info("otp email skipped", zap.String("to", email), zap.String("otp", otp))
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	m.log.Info("password reset email skipped", zap.String("to", email), zap.String("url", resetURL))
	return nil
}
