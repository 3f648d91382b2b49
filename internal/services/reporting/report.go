// Package reporting aggregates monitoring outcomes into per-user
// reports and delivers them by email.
package reporting

import (
	"fmt"
	"time"

	"github.com/geowatch/geowatch/internal/domain"
)

// KeywordRow is one keyword's outcome line in a report.
type KeywordRow struct {
	Keyword   string
	Provider  domain.Provider
	Mentioned bool
	Error     string
}

// AppReport summarizes one app's run outcomes.
type AppReport struct {
	AppName         string
	KeywordsChecked int
	ResultsCreated  int
	Mentions        int
	Rows            []KeywordRow
	Errors          []string
}

// MentionRate returns the mention percentage for this app, 0 when
// nothing was checked.
func (r *AppReport) MentionRate() float64 {
	if r.ResultsCreated == 0 {
		return 0
	}
	return float64(r.Mentions) / float64(r.ResultsCreated) * 100
}

// UserReport is everything one user receives in a run email.
type UserReport struct {
	Email       string
	Apps        []AppReport
	GeneratedAt time.Time
}

// TotalResults sums the checked results across apps.
func (r *UserReport) TotalResults() int {
	total := 0
	for _, app := range r.Apps {
		total += app.ResultsCreated
	}
	return total
}

// TotalMentions sums the detected mentions across apps.
func (r *UserReport) TotalMentions() int {
	total := 0
	for _, app := range r.Apps {
		total += app.Mentions
	}
	return total
}

// MentionRate returns the overall mention percentage.
func (r *UserReport) MentionRate() float64 {
	if r.TotalResults() == 0 {
		return 0
	}
	return float64(r.TotalMentions()) / float64(r.TotalResults()) * 100
}

// Subject builds the email subject line.
func (r *UserReport) Subject() string {
	return fmt.Sprintf("GeoWatch Report: %d/%d mentions (%.0f%%) - %s",
		r.TotalMentions(), r.TotalResults(), r.MentionRate(),
		r.GeneratedAt.Format("Jan 2, 2006"))
}
