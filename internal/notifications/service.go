package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers per-run summaries via a JSON webhook and/or SMTP email,
// whichever channels are configured. With neither configured every send is
// a no-op.
type Service struct {
	config *config.Config
	client *resty.Client
}

// webhookMessage is the payload posted to the configured webhook.
type webhookMessage struct {
	Title     string         `json:"title"`
	Text      string         `json:"text"`
	Stored    int            `json:"stored"`
	Errors    int            `json:"errors"`
	Platforms map[string]int `json:"platforms"`
	Sentiment map[string]int `json:"sentiment"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunReport sends the run summary via every configured channel.
func (s *Service) SendRunReport(report *models.RunReport) error {
	var errs []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(report); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent run report to webhook")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent run report via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(report *models.RunReport) error {
	message := &webhookMessage{
		Title:     "Aggregation Run Report",
		Text:      fmt.Sprintf("Stored %d of %d collected records", report.Stored, report.Collected),
		Stored:    report.Stored,
		Errors:    report.ErrorCount,
		Platforms: report.PlatformBreakdown,
		Sentiment: report.SentimentCounts,
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(report *models.RunReport) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Aggregation run %s: %d records stored",
		report.StartedAt.Format("2006-01-02 15:04"), report.Stored))
	m.SetBody("text/plain", s.buildEmailBody(report))

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort,
		s.config.SMTPUsername, s.config.SMTPPassword)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildEmailBody(report *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run started:   %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:      %s\n", report.Duration)
	fmt.Fprintf(&b, "Collected:     %d\n", report.Collected)
	fmt.Fprintf(&b, "Stored:        %d\n", report.Stored)
	fmt.Fprintf(&b, "Profiles:      %d\n", report.ProfilesEnriched)
	fmt.Fprintf(&b, "Errors:        %d\n\n", report.ErrorCount)

	b.WriteString("Per platform:\n")
	for _, platform := range sortedKeys(report.PlatformBreakdown) {
		fmt.Fprintf(&b, "  %-12s %d\n", platform, report.PlatformBreakdown[platform])
	}
	b.WriteString("\nSentiment:\n")
	for _, label := range sortedKeys(report.SentimentCounts) {
		fmt.Fprintf(&b, "  %-12s %d\n", label, report.SentimentCounts[label])
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
