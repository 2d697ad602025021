package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends operator notifications to Teams and/or email
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// Enabled reports whether any notification channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a leaderboard digest via configured channels
func (s *Service) SendReport(report *models.Report) error {
	return s.fanOut("report",
		func() error { return s.postTeams(s.buildReportCard(report)) },
		func() error {
			subject := fmt.Sprintf("Caster Bot Leaderboard - %s (%d users)", report.Period, report.TotalUsers)
			html, err := buildReportHTML(report)
			if err != nil {
				return fmt.Errorf("failed to build email HTML: %w", err)
			}
			return s.sendEmail(subject, buildReportText(report), html)
		},
	)
}

// SendAlert sends an urgent alert via configured channels
func (s *Service) SendAlert(alert *models.Alert) error {
	return s.fanOut("alert",
		func() error { return s.postTeams(s.buildAlertCard(alert)) },
		func() error {
			subject := fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Type), alert.Title)
			return s.sendEmail(subject, alert.Message, "")
		},
	)
}

func (s *Service) fanOut(kind string, teams, email func() error) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := teams(); err != nil {
			logrus.Errorf("Failed to send Teams %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent %s to Teams", kind)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email %s: %v", kind, err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent %s via email", kind)
		}
	}

	if !s.Enabled() {
		logrus.Debugf("No notification channel configured, dropping %s", kind)
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) postTeams(message *TeamsMessage) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) buildReportCard(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Caster Bot Leaderboard - %s", report.Period),
		Text:    fmt.Sprintf("%d users hold rewards", report.TotalUsers),
	}

	facts := []TeamsFact{
		{Name: "Total Users", Value: fmt.Sprintf("%d", report.TotalUsers)},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if distributed, ok := report.Summary["total_distributed"].(int64); ok {
		facts = append(facts, TeamsFact{Name: "Total Distributed", Value: fmt.Sprintf("%d", distributed)})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.Leaders) > 0 {
		var lines []string
		for i, entry := range report.Leaders {
			lines = append(lines, fmt.Sprintf("%d. **@%s** - %d", i+1, entry.Username, entry.Balance))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Holders",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) buildAlertCard(alert *models.Alert) *TeamsMessage {
	color := "0078D4"
	if alert.Type == "critical" {
		color = "D13438"
	}
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: color,
		Title:      alert.Title,
		Text:       alert.Message,
	}
}

func (s *Service) sendEmail(subject, textBody, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Caster Bot Leaderboard</title></head>
<body style="font-family: Arial, sans-serif; margin: 20px;">
    <h1>Leaderboard</h1>
    <p>{{.Period}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    <p><strong>Total Users:</strong> {{.TotalUsers}}</p>
    {{if .Leaders}}
    <ol>
    {{range .Leaders}}<li>@{{.Username}} ({{.FID}}) - {{.Balance}}</li>
    {{end}}
    </ol>
    {{end}}
</body>
</html>
`))

func buildReportHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReportText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Caster Bot Leaderboard - %s\n", report.Period))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Total Users: %d\n", report.TotalUsers))

	if len(report.Leaders) > 0 {
		text.WriteString("\nTOP HOLDERS\n")
		text.WriteString("===========\n")
		for i, entry := range report.Leaders {
			text.WriteString(fmt.Sprintf("%d. @%s (%s) - %d\n", i+1, entry.Username, entry.FID, entry.Balance))
		}
	}

	return text.String()
}
