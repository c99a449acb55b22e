package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Digest is the periodic per-workspace summary sent after a scheduled run.
type Digest struct {
	WorkspaceID string                  `json:"workspace_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Score       *models.ReputationScore `json:"score,omitempty"`
	Alerts      []models.ReviewAlert    `json:"alerts,omitempty"`
}

// Service delivers alerts and digests via Teams webhook and email.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card.
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
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

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendAlert delivers one alert via every configured channel.
func (s *Service) SendAlert(alert *models.ReviewAlert) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildAlertMessage(alert)); err != nil {
			logrus.Errorf("Failed to send Teams alert: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent %s alert to Teams", alert.Type)
		}
	}

	if s.config.NotificationEmail != "" {
		subject := fmt.Sprintf("[%s] %s", alert.Severity, alert.Title)
		body := fmt.Sprintf("%s\n\n%s\n\nWorkspace: %s\nRaised: %s\n",
			alert.Title, alert.Description, alert.WorkspaceID,
			alert.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		if err := s.sendEmail(subject, body, ""); err != nil {
			logrus.Errorf("Failed to send alert email: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendDigest delivers a workspace digest via every configured channel.
func (s *Service) SendDigest(digest *Digest) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.postToTeams(s.buildDigestMessage(digest)); err != nil {
			logrus.Errorf("Failed to send Teams digest: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent digest for workspace %s to Teams", digest.WorkspaceID)
		}
	}

	if s.config.NotificationEmail != "" {
		subject := fmt.Sprintf("Reputation digest - workspace %s", digest.WorkspaceID)
		htmlBody, err := s.buildDigestHTML(digest)
		if err != nil {
			return fmt.Errorf("failed to build digest HTML: %w", err)
		}
		if err := s.sendEmail(subject, s.buildDigestText(digest), htmlBody); err != nil {
			logrus.Errorf("Failed to send digest email: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) postToTeams(message *TeamsMessage) error {
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

func (s *Service) buildAlertMessage(alert *models.ReviewAlert) *TeamsMessage {
	facts := []TeamsFact{
		{Name: "Severity", Value: string(alert.Severity)},
		{Name: "Workspace", Value: alert.WorkspaceID},
		{Name: "Raised", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if alert.AffectedReviews > 0 {
		facts = append(facts, TeamsFact{Name: "Affected Reviews", Value: fmt.Sprintf("%d", alert.AffectedReviews)})
	}
	if alert.RatingDrop > 0 {
		facts = append(facts, TeamsFact{Name: "Rating Drop", Value: fmt.Sprintf("%.1f", alert.RatingDrop)})
	}

	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Review Alert: %s", alert.Title),
		Text:    alert.Description,
		Sections: []TeamsSection{{
			ActivityTitle: string(alert.Type),
			Facts:         facts,
			Markdown:      true,
		}},
	}
}

func (s *Service) buildDigestMessage(digest *Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Reputation Digest - %s", digest.WorkspaceID),
		Text:    fmt.Sprintf("Generated %s", digest.GeneratedAt.Format("2006-01-02 15:04 UTC")),
	}

	if digest.Score != nil {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Reputation Score",
			Facts: []TeamsFact{
				{Name: "Overall Score", Value: fmt.Sprintf("%d / 100", digest.Score.OverallScore)},
				{Name: "Average Rating", Value: fmt.Sprintf("%.2f", digest.Score.AverageRating)},
				{Name: "Total Reviews", Value: fmt.Sprintf("%d", digest.Score.TotalReviews)},
				{Name: "Positive", Value: fmt.Sprintf("%.0f%%", digest.Score.PositivePercentage)},
				{Name: "Response Rate", Value: fmt.Sprintf("%.0f%%", digest.Score.ResponseRate)},
			},
			Markdown: true,
		})
	}

	if len(digest.Alerts) > 0 {
		var lines []string
		for _, alert := range digest.Alerts {
			lines = append(lines, fmt.Sprintf("**%s** (%s): %s", alert.Type, alert.Severity, alert.Title))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Open Alerts",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
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

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildDigestHTML(digest *Digest) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reputation Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2b5797; color: white; padding: 20px; border-radius: 5px; }
        .score { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .alert { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .alert-title { font-weight: bold; margin-bottom: 5px; }
        .alert-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Reputation Digest</h1>
        <p>Workspace {{.WorkspaceID}} · generated {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    {{if .Score}}
    <div class="score">
        <h2>Score</h2>
        <p><strong>Overall:</strong> {{.Score.OverallScore}} / 100</p>
        <p><strong>Average Rating:</strong> {{printf "%.2f" .Score.AverageRating}}</p>
        <p><strong>Total Reviews:</strong> {{.Score.TotalReviews}}</p>
        <p><strong>Positive:</strong> {{printf "%.0f" .Score.PositivePercentage}}%</p>
        <p><strong>Response Rate:</strong> {{printf "%.0f" .Score.ResponseRate}}%</p>
    </div>
    {{end}}

    {{if .Alerts}}
    <h2>Open Alerts</h2>
    {{range .Alerts}}
    <div class="alert">
        <div class="alert-title">{{.Title}} ({{.Severity}})</div>
        <div class="alert-meta">{{.Type}} · raised {{.CreatedAt.Format "Jan 2, 2006 15:04"}}</div>
        <p>{{.Description}}</p>
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically.</small></p>
</body>
</html>
`
	t, err := template.New("digest").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) buildDigestText(digest *Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Reputation Digest - workspace %s\n", digest.WorkspaceID))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	if digest.Score != nil {
		text.WriteString("SCORE\n=====\n")
		text.WriteString(fmt.Sprintf("Overall: %d / 100\n", digest.Score.OverallScore))
		text.WriteString(fmt.Sprintf("Average Rating: %.2f\n", digest.Score.AverageRating))
		text.WriteString(fmt.Sprintf("Total Reviews: %d\n", digest.Score.TotalReviews))
		text.WriteString(fmt.Sprintf("Positive: %.0f%%\n", digest.Score.PositivePercentage))
		text.WriteString(fmt.Sprintf("Response Rate: %.0f%%\n", digest.Score.ResponseRate))
	}

	if len(digest.Alerts) > 0 {
		text.WriteString("\nOPEN ALERTS\n===========\n")
		for i, alert := range digest.Alerts {
			text.WriteString(fmt.Sprintf("\n%d. [%s] %s\n", i+1, alert.Severity, alert.Title))
			text.WriteString(fmt.Sprintf("   %s\n", alert.Description))
		}
	}

	return text.String()
}
