package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppStatus represents the lifecycle state of a monitored app
type AppStatus string

const (
	AppStatusActive   AppStatus = "active"
	AppStatusPaused   AppStatus = "paused"
	AppStatusArchived AppStatus = "archived"
)

func (s AppStatus) IsValid() bool {
	switch s {
	case AppStatusActive, AppStatusPaused, AppStatusArchived:
		return true
	}
	return false
}

// App is one customer's tracked brand. Its name is the brand string
// mention detection runs against.
type App struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	LogoURL     string    `json:"logo_url" db:"logo_url"`
	Status      AppStatus `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewApp creates an active app owned by userID
func NewApp(userID, name, slug, description string) *App {
	now := time.Now().UTC()
	return &App{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Slug:        strings.TrimSpace(slug),
		Description: description,
		Status:      AppStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks required fields
func (a *App) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ValidationError("name", "name is required")
	}
	if len(a.Name) > 255 {
		return ValidationError("name", "name must be 255 characters or fewer")
	}
	if strings.TrimSpace(a.Slug) == "" {
		return ValidationError("slug", "slug is required")
	}
	if a.UserID == "" {
		return ValidationError("user_id", "user_id is required")
	}
	if !a.Status.IsValid() {
		return ValidationError("status", "invalid status: "+string(a.Status))
	}
	return nil
}
