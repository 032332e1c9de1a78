package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"time"

	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const resendAPIBaseURL = "https://api.resend.com"

// sendGridProvider sends through the SendGrid v3 API.
type sendGridProvider struct {
	apiKey    string
	fromEmail string
	fromName  string
	replyTo   string
}

func newSendGridProvider(c *Config) *sendGridProvider {
	return &sendGridProvider{
		apiKey:    c.SendGridAPIKey,
		fromEmail: c.FromEmail,
		fromName:  c.FromName,
		replyTo:   c.ReplyTo,
	}
}

func (p *sendGridProvider) Name() string { return "sendgrid" }

func (p *sendGridProvider) IsConfigured() bool {
	return p.apiKey != "" && p.fromEmail != ""
}

func (p *sendGridProvider) Send(ctx context.Context, e *entity.Email) error {
	from := sgmail.NewEmail(p.fromName, p.fromEmail)
	to := sgmail.NewEmail("", e.To)
	message := sgmail.NewSingleEmail(from, e.Subject, to, e.Text, e.HTML)
	if p.replyTo != "" {
		message.SetReplyTo(sgmail.NewEmail("", p.replyTo))
	}
	message.AddCategories(e.Tags...)

	cli := sendgrid.NewSendClient(p.apiKey)
	resp, err := cli.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("error sending email bad status code: %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (p *sendGridProvider) TestConnection(ctx context.Context) error {
	req := sendgrid.GetRequest(p.apiKey, "/v3/scopes", "")
	req.Method = http.MethodGet
	resp, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sendgrid credential check failed: status %d", resp.StatusCode)
	}
	return nil
}

// resendProvider sends through the Resend REST API with a bearer token.
type resendProvider struct {
	apiKey    string
	fromEmail string
	fromName  string
	replyTo   string
	cli       *http.Client
}

func newResendProvider(c *Config) *resendProvider {
	return &resendProvider{
		apiKey:    c.ResendAPIKey,
		fromEmail: c.FromEmail,
		fromName:  c.FromName,
		replyTo:   c.ReplyTo,
		cli:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *resendProvider) Name() string { return "resend" }

func (p *resendProvider) IsConfigured() bool {
	return p.apiKey != "" && p.fromEmail != ""
}

func (p *resendProvider) Send(ctx context.Context, e *entity.Email) error {
	payload := struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
		Text    string   `json:"text,omitempty"`
		ReplyTo string   `json:"reply_to,omitempty"`
	}{
		From:    fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail),
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
		Text:    e.Text,
		ReplyTo: p.replyTo,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("can't marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendAPIBaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("can't build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.cli.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error sending email bad status code: %d, body: %s", resp.StatusCode, respBody)
	}
	return nil
}

func (p *resendProvider) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resendAPIBaseURL+"/domains", nil)
	if err != nil {
		return fmt.Errorf("can't build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.cli.Do(req)
	if err != nil {
		return fmt.Errorf("resend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resend credential check failed: status %d", resp.StatusCode)
	}
	return nil
}

// smtpProvider sends through a plain authenticated SMTP relay.
type smtpProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

func newSMTPProvider(c *Config) *smtpProvider {
	return &smtpProvider{
		host:      c.SMTPHost,
		port:      c.SMTPPort,
		username:  c.SMTPUsername,
		password:  c.SMTPPassword,
		fromEmail: c.FromEmail,
		fromName:  c.FromName,
	}
}

func (p *smtpProvider) Name() string { return "smtp" }

func (p *smtpProvider) IsConfigured() bool {
	return p.host != "" && p.port != 0 && p.username != "" && p.password != "" && p.fromEmail != ""
}

func (p *smtpProvider) Send(ctx context.Context, e *entity.Email) error {
	// net/smtp has no context support; the deadline is approximated by the
	// dial timeout inside SendMail's default dialer.
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &bytes.Buffer{}
	fmt.Fprintf(msg, "From: %s <%s>\r\n", p.fromName, p.fromEmail)
	fmt.Fprintf(msg, "To: %s\r\n", e.To)
	fmt.Fprintf(msg, "Subject: %s\r\n", e.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(e.HTML)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	if err := smtp.SendMail(addr, auth, p.fromEmail, []string{e.To}, msg.Bytes()); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

func (p *smtpProvider) TestConnection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp unreachable: %w", err)
	}
	return c.Quit()
}
