package mail

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/entity"
	gerr "github.com/driftlabs/waitlist-api/internal/errors"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

type Config struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	ResendAPIKey   string `mapstructure:"resend_api_key"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUsername   string `mapstructure:"smtp_username"`
	SMTPPassword   string `mapstructure:"smtp_password"`

	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_email_name"`
	ReplyTo   string `mapstructure:"reply_to"`

	// PublicBaseURL is the externally reachable base for verification and
	// unsubscribe links.
	PublicBaseURL  string        `mapstructure:"public_base_url"`
	WorkerInterval time.Duration `mapstructure:"worker_interval"`
}

// Mailer dispatches transactional email through an ordered provider
// fallback chain and records every attempt in the mail log.
type Mailer struct {
	c         *Config
	providers []dependency.Provider
	mailLog   dependency.MailLog
	ec        dependency.EmailCrypt
	templates map[templateName]*template.Template
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(c *Config, mailLog dependency.MailLog, ec dependency.EmailCrypt) (dependency.Mailer, error) {
	return newMailer(c, mailLog, ec)
}

func newMailer(c *Config, mailLog dependency.MailLog, ec dependency.EmailCrypt) (*Mailer, error) {
	if c.FromEmail == "" || c.FromName == "" {
		return nil, fmt.Errorf("incomplete mailer config: from address and name are required")
	}
	if c.WorkerInterval == 0 {
		c.WorkerInterval = 5 * time.Minute
	}

	m := &Mailer{
		c:       c,
		mailLog: mailLog,
		ec:      ec,
		// Fallback order is fixed; only providers with complete
		// credentials join the chain.
		providers: configuredProviders(c),

		templates: make(map[templateName]*template.Template),
	}

	if err := m.parseTemplates(); err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	return m, nil
}

func configuredProviders(c *Config) []dependency.Provider {
	all := []dependency.Provider{
		newSendGridProvider(c),
		newResendProvider(c),
		newSMTPProvider(c),
	}
	var out []dependency.Provider
	for _, p := range all {
		if p.IsConfigured() {
			out = append(out, p)
		}
	}
	return out
}

func (m *Mailer) parseTemplates() error {
	templateDir := "templates"

	dirEntries, err := templatesFS.ReadDir(templateDir)
	if err != nil {
		return fmt.Errorf("error reading template directory: %w", err)
	}

	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}

		templatePath := filepath.Join(templateDir, entry.Name())

		tmpl, err := template.ParseFS(templatesFS, templatePath)
		if err != nil {
			return fmt.Errorf("error parsing template '%s': %w", entry.Name(), err)
		}

		m.templates[templateName(entry.Name())] = tmpl
	}

	return nil
}

// dispatch renders the template, records the message in the mail log and
// walks the provider chain.
func (m *Mailer) dispatch(ctx context.Context, tn templateName, to string, data any, text string, tags []string) error {
	tmpl, ok := m.templates[tn]
	if !ok {
		return fmt.Errorf("template not found: %v", tn)
	}
	subject, ok := templateSubjects[tn]
	if !ok {
		return fmt.Errorf("subject not found for template: %v", tn)
	}

	body := &strings.Builder{}
	if err := tmpl.Execute(body, data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	e := &entity.Email{
		To:      to,
		Subject: subject,
		HTML:    body.String(),
		Text:    text,
		Tags:    tags,
	}

	id := m.logMessage(ctx, tn, e)
	return m.trySend(ctx, id, e)
}

// logMessage inserts the outbound message into the mail log so a failed
// send can be retried by the worker. A logging failure is not fatal to the
// send itself.
func (m *Mailer) logMessage(ctx context.Context, tn templateName, e *entity.Email) int {
	enc, err := m.ec.EncryptEmail(e.To)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't encrypt recipient for mail log",
			slog.String("err", err.Error()),
		)
		return 0
	}

	id, err := m.mailLog.Add(ctx, &entity.SendEmailLog{
		ToEncrypted: enc,
		ToHash:      m.ec.HashEmail(e.To),
		Template:    string(tn),
		Subject:     e.Subject,
		HTML:        e.HTML,
		Text:        e.Text,
	})
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't insert mail log row",
			slog.String("err", err.Error()),
		)
		return 0
	}
	return id
}

// trySend walks providers strictly in order and stops at the first
// success. A provider failure is logged and the next provider tried.
func (m *Mailer) trySend(ctx context.Context, logID int, e *entity.Email) error {
	if len(m.providers) == 0 {
		m.recordError(ctx, logID, gerr.ErrNoProvidersConfigured)
		return gerr.ErrNoProvidersConfigured
	}

	for _, p := range m.providers {
		if !p.IsConfigured() {
			continue
		}
		if err := p.Send(ctx, e); err != nil {
			slog.Default().WarnContext(ctx, "provider send failed, trying next",
				slog.String("provider", p.Name()),
				slog.String("err", err.Error()),
			)
			continue
		}

		if logID > 0 {
			if err := m.mailLog.UpdateSent(ctx, logID, p.Name()); err != nil {
				slog.Default().ErrorContext(ctx, "can't update sent status",
					slog.String("err", err.Error()),
				)
			}
		}
		return nil
	}

	m.recordError(ctx, logID, gerr.ErrAllProvidersFailed)
	return gerr.ErrAllProvidersFailed
}

func (m *Mailer) recordError(ctx context.Context, logID int, sendErr error) {
	if logID == 0 {
		return
	}
	if err := m.mailLog.AddError(ctx, logID, sendErr.Error()); err != nil {
		slog.Default().ErrorContext(ctx, "can't record send error",
			slog.String("err", err.Error()),
		)
	}
}
