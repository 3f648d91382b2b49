package domain

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies the answer engine a result came from
type Provider string

const (
	// ProviderGoogleAIMode is the hosted search-scraping provider
	ProviderGoogleAIMode Provider = "google_ai_mode"
	// ProviderChatGPT is the interactive browser provider
	ProviderChatGPT Provider = "chatgpt"
)

func (p Provider) IsValid() bool {
	return p == ProviderGoogleAIMode || p == ProviderChatGPT
}

// Label returns the display name for a provider
func (p Provider) Label() string {
	switch p {
	case ProviderGoogleAIMode:
		return "Google AI Mode"
	case ProviderChatGPT:
		return "ChatGPT"
	}
	return string(p)
}

// Sentiment is a placeholder classification; scoring is not implemented
type Sentiment string

const (
	SentimentPositive     Sentiment = "positive"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentNotMentioned Sentiment = "not_mentioned"
)

// Citation is a grouped source reference the answer engine attributed
type Citation struct {
	Text string   `json:"text"`
	URLs []string `json:"urls"`
}

// Link is one source URL with its display text and hostname
type Link struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// MonitoringResult is the normalized outcome of one (keyword, provider)
// query. The store keeps at most one live result per (keyword, provider)
// pair: a fresh run replaces the prior snapshot.
type MonitoringResult struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	AppID       uuid.UUID  `json:"app_id" db:"app_id"`
	KeywordID   uuid.UUID  `json:"keyword_id" db:"keyword_id"`
	Provider    Provider   `json:"provider" db:"provider"`
	QueryText   string     `json:"query_text" db:"query_text"`
	Response    string     `json:"response" db:"response"`
	Mentioned   bool       `json:"mentioned" db:"mentioned"`
	Sentiment   Sentiment  `json:"sentiment" db:"sentiment"`
	Citations   []Citation `json:"citations"`
	Links       []Link     `json:"links"`
	MentionText *string    `json:"mention_text,omitempty" db:"mention_text"`
	ArtifactURL *string    `json:"artifact_url,omitempty" db:"artifact_url"`
	ErrorText   *string    `json:"error,omitempty" db:"error_text"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// NewMonitoringResult creates a result shell for one query outcome
func NewMonitoringResult(appID, keywordID uuid.UUID, provider Provider, queryText string) *MonitoringResult {
	return &MonitoringResult{
		ID:        uuid.New(),
		AppID:     appID,
		KeywordID: keywordID,
		Provider:  provider,
		QueryText: queryText,
		Sentiment: SentimentNotMentioned,
		CreatedAt: time.Now().UTC(),
	}
}
