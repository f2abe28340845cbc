package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nagaralert/alerthub/internal/config"
	"github.com/nagaralert/alerthub/internal/models"
	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Service sends each notice over every configured channel: submitter email,
// a chat webhook for serious verified alerts, and the AMQP exchange.
type Service struct {
	cfg    *config.Config
	client *resty.Client
	mailer mailSender
	broker publisher
}

var _ Notifier = (*Service)(nil)

// NewService wires the channels present in cfg. broker may be nil.
func NewService(cfg *config.Config, broker *Broker) *Service {
	s := &Service{
		cfg:    cfg,
		client: resty.New().SetTimeout(10 * time.Second),
	}
	if cfg.SMTPEnabled() {
		s.mailer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	if broker != nil {
		s.broker = broker
	}
	return s
}

func (s *Service) AlertModerated(ctx context.Context, n Notice) error {
	var errs []error

	if s.mailer != nil && n.SubmitterEmail != "" && n.Action != models.ActionDeleted {
		if err := s.sendEmail(n); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if s.cfg.WebhookURL != "" && worthBroadcasting(n) {
		if err := s.sendWebhook(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}

	if s.broker != nil {
		if err := s.broker.Publish(ctx, "alert."+string(n.Action), n); err != nil {
			errs = append(errs, fmt.Errorf("broker: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Debug("moderation notice sent", "alert_id", n.Alert.ID.String(), "action", string(n.Action))
	return nil
}

// worthBroadcasting limits the public webhook to verified high and critical alerts.
func worthBroadcasting(n Notice) bool {
	if n.Action != models.ActionVerified {
		return false
	}
	return n.Alert.Severity == models.SeverityHigh || n.Alert.Severity == models.SeverityCritical
}

type webhookMessage struct {
	Text     string          `json:"text"`
	Title    string          `json:"title"`
	AlertID  string          `json:"alert_id"`
	Category models.Category `json:"category"`
	Severity models.Severity `json:"severity"`
	Lat      float64         `json:"lat"`
	Lng      float64         `json:"lng"`
	URL      string          `json:"url"`
}

func (s *Service) buildWebhookMessage(n Notice) webhookMessage {
	a := n.Alert
	where := a.LocationAddress
	if where == "" {
		where = fmt.Sprintf("%.4f, %.4f", a.LocationLat, a.LocationLng)
	}
	return webhookMessage{
		Text:     fmt.Sprintf("[%s] %s near %s", a.Severity, a.Title, where),
		Title:    a.Title,
		AlertID:  a.ID.String(),
		Category: a.Category,
		Severity: a.Severity,
		Lat:      a.LocationLat,
		Lng:      a.LocationLng,
		URL:      s.alertURL(a),
	}
}

func (s *Service) sendWebhook(ctx context.Context, n Notice) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(s.buildWebhookMessage(n)).
		Post(s.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

var emailTemplate = template.Must(template.New("moderated").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>{{.Heading}}</h2>
  <p>Your report <strong>{{.Title}}</strong> was {{.Action}} by a moderator.</p>
  {{if .Notes}}<p>Moderator notes: {{.Notes}}</p>{{end}}
  <p><a href="{{.URL}}">View the alert</a></p>
</body>
</html>`))

func (s *Service) buildEmail(n Notice) (*gomail.Message, error) {
	data := struct {
		Heading, Title, Action, Notes, URL string
	}{
		Heading: subjectFor(n),
		Title:   n.Alert.Title,
		Action:  string(n.Action),
		Notes:   n.Notes,
		URL:     s.alertURL(n.Alert),
	}

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}

	text := fmt.Sprintf("Your report %q was %s by a moderator.\n", n.Alert.Title, n.Action)
	if n.Notes != "" {
		text += "Moderator notes: " + n.Notes + "\n"
	}
	text += data.URL + "\n"

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", n.SubmitterEmail)
	m.SetHeader("Subject", data.Heading)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html.String())
	return m, nil
}

func (s *Service) sendEmail(n Notice) error {
	m, err := s.buildEmail(n)
	if err != nil {
		return err
	}
	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func subjectFor(n Notice) string {
	switch n.Action {
	case models.ActionVerified:
		return "Your alert is now live"
	case models.ActionRejected:
		return "Your alert was not approved"
	case models.ActionResolved:
		return "Your alert has been resolved"
	default:
		return "Update on your alert"
	}
}

func (s *Service) alertURL(a models.Alert) string {
	return s.cfg.PublicAppURL + "/alerts/" + a.ID.String()
}
