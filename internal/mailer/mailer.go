package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"contentgate/api/internal/config"
)

type OTPMessage struct {
	To          string
	DisplayName string
	Code        string
	ExpiresAt   time.Time
}

type SMTPMailer struct {
	client  *mail.Client
	from    string
	appName string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, appName: cfg.AppName}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, otp OTPMessage) error {
	msg, err := buildOTPMessage(m.from, m.appName, otp)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

var otpHTML = template.Must(template.New("otp").Parse(`<p>Hi {{.Name}},</p>
<p>Your {{.App}} verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.Minutes}} minutes. If you did not sign up, ignore this e-mail.</p>`))

func buildOTPMessage(from, appName string, otp OTPMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(otp.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("%s verification code: %s", appName, otp.Code))

	minutes := int(time.Until(otp.ExpiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	name := otp.DisplayName
	if name == "" {
		name = "there"
	}

	plain := fmt.Sprintf("Hi %s,\n\nYour %s verification code is %s.\nIt expires in %d minutes. If you did not sign up, ignore this e-mail.\n",
		name, appName, otp.Code, minutes)
	msg.SetBodyString(mail.TypeTextPlain, plain)

	var html bytes.Buffer
	if err := otpHTML.Execute(&html, map[string]any{
		"Name":    name,
		"App":     appName,
		"Code":    otp.Code,
		"Minutes": minutes,
	}); err != nil {
		return nil, fmt.Errorf("render otp mail: %w", err)
	}
	msg.AddAlternativeString(mail.TypeTextHTML, html.String())
	return msg, nil
}
