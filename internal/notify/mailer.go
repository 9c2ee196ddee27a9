// Package notify emails a digest of each conversion run.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/starford/flipdesk/internal/conversion"
)

// sender is the part of *gomail.Dialer the mailer uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends conversion digests over SMTP.
type Mailer struct {
	from   string
	to     []string
	dialer sender
	logger *slog.Logger
}

// NewMailer creates a Mailer using the given SMTP server.
func NewMailer(host string, port int, user, password, from string, to []string, logger *slog.Logger) *Mailer {
	return &Mailer{
		from:   from,
		to:     to,
		dialer: gomail.NewDialer(host, port, user, password),
		logger: logger,
	}
}

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"money": money,
}).Parse(`Conversion run {{.RunID}} ({{.Trigger}}) converted {{.Converted}} lead(s).

{{range .Conversions}}- Lead #{{.LeadID}} -> opportunity #{{.PropertyID}}: {{.Address}} [{{.Status}}] {{money .Price}}
{{end}}
Scanned {{.Scanned}}, skipped {{.Skipped}}, failed {{.Failed}}.
`))

func money(v *float64) string {
	if v == nil {
		return "no price"
	}
	return "$" + strconv.FormatFloat(*v, 'f', 2, 64)
}

// Build renders the digest message for r.
func (m *Mailer) Build(r conversion.Report) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := digestTmpl.Execute(&body, r); err != nil {
		return nil, fmt.Errorf("notify: render digest: %w", err)
	}

	msg := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", fmt.Sprintf("Flipdesk: %d new opportunit%s", r.Converted, plural(r.Converted)))
	msg.SetBody("text/plain", body.String())
	return msg, nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// Send renders and sends the digest for r.
func (m *Mailer) Send(r conversion.Report) error {
	msg, err := m.Build(r)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: send digest: %w", err)
	}
	return nil
}

// Listener returns a worker listener that mails the digest. Send failures
// are logged.
func (m *Mailer) Listener() conversion.Listener {
	return func(_ context.Context, r conversion.Report) {
		if err := m.Send(r); err != nil {
			m.logger.Warn("conversion digest not sent",
				slog.String("run_id", r.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
}
