package smtp

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/smartprep/auth-api/internal/config"
)

// Mailer delivers OTP codes to users. Delivery failure must fail the issuance
// request, so errors are returned, never swallowed.
type Mailer interface {
	SendOtp(to, fullname, code string, expiryMinutes int) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendOtp(to, fullname, code string, expiryMinutes int) error {
	body, err := renderOtpMail(fullname, code, expiryMinutes)
	if err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}

	msg := fmt.Sprintf(
		"From: Authentication Service <%s>\r\nTo: %s\r\nSubject: Email Verification - OTP Code\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.from, to, body,
	)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .container { background-color: #f9f9f9; border-radius: 10px; padding: 30px; }
    .otp-code { background-color: #007bff; color: white; font-size: 32px; font-weight: bold; text-align: center; padding: 20px; border-radius: 8px; letter-spacing: 8px; margin: 30px 0; }
    .info { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; }
    .footer { text-align: center; margin-top: 30px; font-size: 12px; color: #666; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Email Verification</h1>
    <p>Hello {{.Fullname}},</p>
    <p>To continue, please use the following One-Time Password (OTP):</p>
    <div class="otp-code">{{.Code}}</div>
    <div class="info">
      <strong>Important:</strong>
      <ul>
        <li>This OTP is valid for {{.ExpiryMinutes}} minutes only</li>
        <li>Do not share this code with anyone</li>
        <li>If you didn't request this, please ignore this email</li>
      </ul>
    </div>
    <div class="footer">
      <p>This is an automated email. Please do not reply to this message.</p>
    </div>
  </div>
</body>
</html>`))

func renderOtpMail(fullname, code string, expiryMinutes int) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Fullname      string
		Code          string
		ExpiryMinutes int
	}{fullname, code, expiryMinutes})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
