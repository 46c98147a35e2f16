package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs emails instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender sends emails via the Resend API. Used in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
		Tags:    []resend.Tag{{Name: "category", Value: "warranty_registration"}},
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`<p>The warranty for <strong>{{.AssetName}}</strong> (asset {{.AssetID}}) has been registered.</p>
<p>Status: {{.Status}}<br>Coverage: {{.StartDate.Format "2006-01-02"}}{{with .EndDate}} to {{.Format "2006-01-02"}}{{end}}</p>
<p>Reference: {{.ID}}</p>`))

// RegistrationConfirmation renders the subject and HTML body sent after a
// new warranty is recorded. Asset fields come from callers and are escaped.
func RegistrationConfirmation(w *domain.Warranty) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, w); err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return "Warranty registered: " + w.AssetName, buf.String(), nil
}
