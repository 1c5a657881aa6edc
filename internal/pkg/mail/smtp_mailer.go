package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
)

const purchaseSubject = "Your Thanyaaura agents are ready"

var purchaseTemplate = template.Must(template.New("purchase").Parse(`<p>Thank you for your purchase.</p>
<p>The following agents are now unlocked for {{.Email}}:</p>
<ul>
{{- range .Agents}}
<li><strong>{{.Slug}}</strong>{{if .Name}} - {{.Name}}{{end}}</li>
{{- end}}
</ul>
`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends the purchase confirmation over SMTP. It implements
// billing.Notifier.
type SMTPMailer struct {
	cfg     config.SMTP
	catalog *catalog.Catalog
	send    sendFunc
}

// NewSMTPMailer returns nil when SMTP_HOST is unset so the caller can skip
// the notifier entirely.
func NewSMTPMailer(cfg config.SMTP, c *catalog.Catalog) *SMTPMailer {
	if !cfg.Enabled() {
		return nil
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		cfg.Sender = "no-reply@localhost"
		log.Warn().Str("sender", cfg.Sender).Msg("SMTP_SENDER not set, using default sender")
	}
	return &SMTPMailer{cfg: cfg, catalog: c, send: smtp.SendMail}
}

type agentLine struct {
	Slug catalog.AgentSlug
	Name string
}

// NotifyPurchase mails the buyer the agents a purchase unlocked.
func (m *SMTPMailer) NotifyPurchase(ctx context.Context, email string, agents []catalog.AgentSlug) error {
	if len(agents) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lines := make([]agentLine, 0, len(agents))
	for _, slug := range agents {
		line := agentLine{Slug: slug}
		if m.catalog != nil {
			if a, ok := m.catalog.Agent(slug); ok {
				line.Name = a.Name
			}
		}
		lines = append(lines, line)
	}

	var body bytes.Buffer
	if err := purchaseTemplate.Execute(&body, struct {
		Email  string
		Agents []agentLine
	}{Email: email, Agents: lines}); err != nil {
		return fmt.Errorf("render purchase mail: %w", err)
	}
	return m.SendMail(email, purchaseSubject, body.String())
}

// SendMail sends one HTML mail.
func (m *SMTPMailer) SendMail(to string, subject string, body string) error {
	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.cfg.Sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(addr, auth, m.cfg.Sender, []string{to}, msg); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("smtp send error")
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	log.Info().Str("to", to).Str("addr", addr).Msg("email sent")
	return nil
}
