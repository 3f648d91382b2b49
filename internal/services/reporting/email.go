package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/config"
)

// EmailService sends report emails through the Resend API.
type EmailService struct {
	cfg        config.EmailConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.EmailConfig, logger *zap.Logger) *EmailService {
	return &EmailService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("email"),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// SendReport delivers a user's run report. When no API key is
// configured the send is skipped with a warning so runs keep working
// in local setups.
func (s *EmailService) SendReport(ctx context.Context, report *UserReport) error {
	if s.cfg.APIKey == "" {
		s.logger.Warn("email API key not configured, skipping report",
			zap.String("to", report.Email))
		return nil
	}

	html, err := renderReportHTML(report)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	body, err := json.Marshal(resendRequest{
		From:    s.cfg.From,
		To:      []string{report.Email},
		Subject: report.Subject(),
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshaling email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(raw))
	}

	var result resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.ID != "" {
		s.logger.Info("report email sent",
			zap.String("to", report.Email),
			zap.String("email_id", result.ID))
	}

	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, sans-serif; color: #1a1a1a; max-width: 640px; margin: 0 auto;">
  <h2>GeoWatch Monitoring Report</h2>
  <p>{{.GeneratedAt.Format "January 2, 2006"}} &middot; {{.TotalMentions}}/{{.TotalResults}} checks mentioned your brand ({{printf "%.0f" .MentionRate}}%)</p>
  {{range .Apps}}
  <h3>{{.AppName}}</h3>
  <p>{{.KeywordsChecked}} keywords checked &middot; {{.Mentions}}/{{.ResultsCreated}} mentions ({{printf "%.0f" .MentionRate}}%)</p>
  <table width="100%" cellpadding="6" cellspacing="0" style="border-collapse: collapse; font-size: 14px;">
    <tr style="text-align: left; border-bottom: 1px solid #ddd;">
      <th>Keyword</th><th>Provider</th><th>Mentioned</th>
    </tr>
    {{range .Rows}}
    <tr style="border-bottom: 1px solid #eee;">
      <td>{{.Keyword}}</td>
      <td>{{.Provider.Label}}</td>
      <td>{{if .Error}}error{{else if .Mentioned}}yes{{else}}no{{end}}</td>
    </tr>
    {{end}}
  </table>
  {{if .Errors}}
  <p style="color: #b00;">{{len .Errors}} check(s) failed this run.</p>
  {{end}}
  {{end}}
  <p style="color: #888; font-size: 12px;">You receive this because daily monitoring is enabled for your apps.</p>
</body>
</html>`))

func renderReportHTML(report *UserReport) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}
