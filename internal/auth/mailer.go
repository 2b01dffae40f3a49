package auth

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"

	"github.com/elskow/qwizme/internal/notify"
)

const layoutStart = `<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">`

const buttonStyle = `display: inline-block; padding: 12px 24px; background: #4f46e5; color: white; text-decoration: none; border-radius: 8px; font-weight: 600;`

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "verify-email"}}` + layoutStart + `
  <h2 style="color: #4f46e5;">Verify your email</h2>
  <p>Welcome to Qwiz Me! Click the button below to verify your email address.</p>
  <a href="{{.Link}}" style="` + buttonStyle + `">Verify Email</a>
  <p style="color: #6b7280; font-size: 14px; margin-top: 24px;">If you didn't create an account, you can ignore this email.</p>
</div>{{end}}
{{define "reset-password"}}` + layoutStart + `
  <h2 style="color: #4f46e5;">Reset your password</h2>
  <p>We received a request to reset your password. Click the button below to choose a new one.</p>
  <a href="{{.Link}}" style="` + buttonStyle + `">Reset Password</a>
  <p style="color: #6b7280; font-size: 14px; margin-top: 24px;">This link expires in 1 hour. If you didn't request this, you can ignore this email.</p>
</div>{{end}}
{{define "verification-code"}}` + layoutStart + `
  <h2 style="color: #4f46e5;">Your verification code</h2>
  <p>Enter this code to confirm your email address:</p>
  <p style="font-size: 32px; font-weight: 700; letter-spacing: 8px;">{{.Code}}</p>
  <p style="color: #6b7280; font-size: 14px; margin-top: 24px;">The code expires in 10 minutes.</p>
</div>{{end}}
{{define "email-change"}}` + layoutStart + `
  <h2 style="color: #4f46e5;">Confirm your new email</h2>
  <p>Enter this code in Qwiz Me to confirm the change:</p>
  <p style="font-size: 32px; font-weight: 700; letter-spacing: 8px;">{{.Code}}</p>
  <p>Or click the button below.</p>
  <a href="{{.Link}}" style="` + buttonStyle + `">Confirm Email</a>
  <p style="color: #6b7280; font-size: 14px; margin-top: 24px;">If you didn't request this change, you can ignore this email.</p>
</div>{{end}}
`))

type mailData struct {
	Link string
	Code string
}

// Mailer renders account emails and hands them to a Notifier.
type Mailer struct {
	notifier    notify.Notifier
	frontendURL string
}

func NewMailer(notifier notify.Notifier, frontendURL string) *Mailer {
	return &Mailer{
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (m *Mailer) SendVerifyEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Verify your Qwiz Me email", "verify-email", mailData{
		Link: m.link("/verify-email", token),
	})
}

func (m *Mailer) SendResetPassword(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Reset your Qwiz Me password", "reset-password", mailData{
		Link: m.link("/reset-password", token),
	})
}

func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	return m.send(ctx, to, "Your Qwiz Me verification code", "verification-code", mailData{
		Code: code,
	})
}

func (m *Mailer) SendEmailChange(ctx context.Context, to, code, token string) error {
	return m.send(ctx, to, "Confirm your new Qwiz Me email", "email-change", mailData{
		Code: code,
		Link: m.link("/confirm-email", token),
	})
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data mailData) error {
	var body bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return err
	}
	return m.notifier.Send(ctx, notify.Message{
		To:      to,
		Subject: subject,
		HTML:    body.String(),
	})
}
