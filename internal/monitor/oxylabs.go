package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geowatch/geowatch/internal/config"
	"github.com/geowatch/geowatch/internal/domain"
)

// maxQueryLen is the upstream limit on query length for the AI Mode source.
const maxQueryLen = 400

// GoogleAIModeProvider queries Google AI Mode through the Oxylabs
// realtime scraping API.
type GoogleAIModeProvider struct {
	cfg     config.OxylabsConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGoogleAIModeProvider creates the HTTP search provider.
func NewGoogleAIModeProvider(cfg config.OxylabsConfig, logger *zap.Logger) *GoogleAIModeProvider {
	rpm := cfg.RateLimitRPM
	if rpm <= 0 {
		rpm = 30
	}
	return &GoogleAIModeProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:  logger.Named("oxylabs"),
	}
}

// Name implements Provider.
func (p *GoogleAIModeProvider) Name() domain.Provider {
	return domain.ProviderGoogleAIMode
}

// ConcurrentQueries implements ConcurrentQuerier. Each request is a
// standalone HTTP call; the shared rate limiter already paces them.
func (p *GoogleAIModeProvider) ConcurrentQueries() bool {
	return true
}

type oxylabsRequest struct {
	Source string `json:"source"`
	Query  string `json:"query"`
	Render string `json:"render"`
	Parse  bool   `json:"parse"`
}

type oxylabsEnvelope struct {
	Results []oxylabsResult `json:"results"`
}

type oxylabsResult struct {
	Content    oxylabsContent `json:"content"`
	StatusCode int            `json:"status_code"`
}

type oxylabsContent struct {
	ResponseText string            `json:"response_text"`
	Citations    []oxylabsCitation `json:"citations"`
	Links        []oxylabsLink     `json:"links"`
}

type oxylabsCitation struct {
	Text string   `json:"text"`
	URLs []string `json:"urls"`
}

type oxylabsLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Query implements Provider. It submits the query to the realtime
// endpoint and normalizes the parsed AI Mode answer.
func (p *GoogleAIModeProvider) Query(ctx context.Context, query string) (*Answer, error) {
	if !p.cfg.Configured() {
		return nil, fmt.Errorf("oxylabs credentials not configured")
	}

	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(oxylabsRequest{
		Source: "google_ai_mode",
		Query:  query,
		Render: "html",
		Parse:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oxylabs request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading oxylabs response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("oxylabs returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("oxylabs error %d", resp.StatusCode)
	}

	var envelope oxylabsEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding oxylabs response: %w", err)
	}

	if len(envelope.Results) == 0 {
		return nil, fmt.Errorf("oxylabs returned no results")
	}

	result := envelope.Results[0]
	if result.StatusCode != 0 && result.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oxylabs error %d", result.StatusCode)
	}

	answer := &Answer{
		Provider: domain.ProviderGoogleAIMode,
		Query:    query,
		Response: strings.TrimSpace(result.Content.ResponseText),
	}
	for _, c := range result.Content.Citations {
		answer.Citations = append(answer.Citations, domain.Citation{Text: c.Text, URLs: c.URLs})
	}
	for _, l := range result.Content.Links {
		answer.Links = append(answer.Links, domain.Link{
			Text:   l.Text,
			URL:    l.URL,
			Domain: hostnameOf(l.URL),
		})
	}

	p.logger.Debug("oxylabs query complete",
		zap.Int("response_len", len(answer.Response)),
		zap.Int("citations", len(answer.Citations)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return answer, nil
}

// hostnameOf extracts the lowercase hostname from a URL, stripping a
// leading www. Empty on unparseable input.
func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
