package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeywordStatus represents whether a keyword is being monitored
type KeywordStatus string

const (
	KeywordStatusActive KeywordStatus = "active"
	KeywordStatusPaused KeywordStatus = "paused"
)

func (s KeywordStatus) IsValid() bool {
	return s == KeywordStatusActive || s == KeywordStatusPaused
}

// Keyword is a tracked search phrase belonging to an app
type Keyword struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	AppID         uuid.UUID     `json:"app_id" db:"app_id"`
	Keyword       string        `json:"keyword" db:"keyword"`
	Status        KeywordStatus `json:"status" db:"status"`
	LastCheckedAt *time.Time    `json:"last_checked_at,omitempty" db:"last_checked_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// NewKeyword creates an active keyword for an app
func NewKeyword(appID uuid.UUID, phrase string) *Keyword {
	return &Keyword{
		ID:        uuid.New(),
		AppID:     appID,
		Keyword:   strings.TrimSpace(phrase),
		Status:    KeywordStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks required fields
func (k *Keyword) Validate() error {
	if strings.TrimSpace(k.Keyword) == "" {
		return ValidationError("keyword", "keyword is required")
	}
	if len(k.Keyword) > 500 {
		return ValidationError("keyword", "keyword must be 500 characters or fewer")
	}
	if k.AppID == uuid.Nil {
		return ValidationError("app_id", "app_id is required")
	}
	return nil
}
