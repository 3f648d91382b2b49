// Package monitoring coordinates full monitoring runs: fanning tracked
// keywords across answer-engine providers, detecting brand mentions,
// and persisting the latest snapshot per (keyword, provider).
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/monitor"
	"github.com/geowatch/geowatch/internal/observability"
)

// ResultStore persists monitoring result snapshots.
type ResultStore interface {
	Replace(ctx context.Context, keywordID uuid.UUID, provider domain.Provider, results []*domain.MonitoringResult) error
}

// KeywordStore records when keywords were checked.
type KeywordStore interface {
	TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Options controls a single run.
type Options struct {
	// Providers restricts the run; empty means all registered.
	Providers []domain.Provider

	// Expand queries each keyword through the question templates
	// instead of as-is.
	Expand bool
}

// Outcome is the per-(keyword, provider) summary of a run.
type Outcome struct {
	KeywordID uuid.UUID       `json:"keyword_id"`
	Keyword   string          `json:"keyword"`
	Provider  domain.Provider `json:"provider"`
	Mentioned bool            `json:"mentioned"`
	Error     string          `json:"error,omitempty"`
}

// RunStats aggregates a completed run.
type RunStats struct {
	KeywordsChecked int       `json:"keywords_checked"`
	ResultsCreated  int       `json:"results_created"`
	Mentions        int       `json:"mentions"`
	Errors          []string  `json:"errors,omitempty"`
	Outcomes        []Outcome `json:"outcomes"`
}

// Orchestrator executes monitoring runs.
type Orchestrator struct {
	providers       []monitor.Provider
	results         ResultStore
	keywords        KeywordStore
	metrics         *observability.Metrics
	httpConcurrency int
	logger          *zap.Logger
}

// NewOrchestrator creates a run orchestrator. metrics may be nil.
// httpConcurrency bounds how many stateless provider queries run at
// once; values below 1 mean sequential.
func NewOrchestrator(providers []monitor.Provider, results ResultStore, keywords KeywordStore, metrics *observability.Metrics, httpConcurrency int, logger *zap.Logger) *Orchestrator {
	if httpConcurrency < 1 {
		httpConcurrency = 1
	}
	return &Orchestrator{
		providers:       providers,
		results:         results,
		keywords:        keywords,
		metrics:         metrics,
		httpConcurrency: httpConcurrency,
		logger:          logger.Named("orchestrator"),
	}
}

// Run checks every keyword against the selected providers and persists
// fresh snapshots. A provider failure is recorded as an error-shaped
// result for its (keyword, provider) pair and never aborts the run.
// Mention detection runs centrally against the app's brand name, so
// every provider is judged by the same rule.
func (o *Orchestrator) Run(ctx context.Context, app *domain.App, keywords []*domain.Keyword, opts Options) (*RunStats, error) {
	stats := &RunStats{}
	providers := o.selectProviders(opts.Providers)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers selected")
	}

	var active []*domain.Keyword
	for _, keyword := range keywords {
		if keyword.Status == domain.KeywordStatusActive {
			active = append(active, keyword)
		}
	}

	type task struct {
		keyword  *domain.Keyword
		provider monitor.Provider
	}
	tasks := make([]task, 0, len(active)*len(providers))
	for _, keyword := range active {
		for _, provider := range providers {
			tasks = append(tasks, task{keyword, provider})
		}
	}

	o.logger.Info("starting run",
		zap.String("app", app.Slug),
		zap.Int("keywords", len(active)),
		zap.Int("providers", len(providers)),
		zap.Int("http_concurrency", o.httpConcurrency),
	)

	// Stateless providers fan out across keywords through a bounded
	// pool; session-bound providers run inline, one query at a time.
	slots := make([]checkResult, len(tasks))
	sem := make(chan struct{}, o.httpConcurrency)
	var wg sync.WaitGroup

	dispatched := 0
	var runErr error
	for i, tk := range tasks {
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		dispatched = i + 1

		if o.httpConcurrency > 1 && parallelizable(tk.provider) {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, tk task) {
				defer wg.Done()
				defer func() { <-sem }()
				slots[i] = o.checkKeyword(ctx, app, tk.keyword, tk.provider, opts.Expand)
			}(i, tk)
		} else {
			slots[i] = o.checkKeyword(ctx, app, tk.keyword, tk.provider, opts.Expand)
		}
	}
	wg.Wait()

	for i := 0; i < dispatched; i++ {
		stats.Outcomes = append(stats.Outcomes, slots[i].outcome)
		stats.ResultsCreated += slots[i].created
		stats.Mentions += slots[i].mentions
		stats.Errors = append(stats.Errors, slots[i].errs...)
	}

	// Tasks are keyword-major, so this is the count of keywords whose
	// every provider pair was dispatched.
	checked := dispatched / len(providers)
	for _, keyword := range active[:checked] {
		stats.KeywordsChecked++
		if err := o.keywords.TouchLastChecked(ctx, keyword.ID, time.Now().UTC()); err != nil {
			o.logger.Warn("touching last_checked failed",
				zap.String("keyword", keyword.Keyword), zap.Error(err))
		}
	}

	if runErr != nil {
		return stats, runErr
	}

	o.logger.Info("run complete",
		zap.String("app", app.Slug),
		zap.Int("keywords_checked", stats.KeywordsChecked),
		zap.Int("results_created", stats.ResultsCreated),
		zap.Int("mentions", stats.Mentions),
		zap.Int("errors", len(stats.Errors)),
	)

	return stats, nil
}

// checkResult carries one (keyword, provider) pair's contribution to
// the run stats, folded in after the fan-out completes.
type checkResult struct {
	outcome  Outcome
	created  int
	mentions int
	errs     []string
}

// parallelizable reports whether a provider declared its queries safe
// to run concurrently.
func parallelizable(p monitor.Provider) bool {
	cq, ok := p.(monitor.ConcurrentQuerier)
	return ok && cq.ConcurrentQueries()
}

// checkKeyword runs one keyword against one provider and replaces that
// pair's stored snapshot.
func (o *Orchestrator) checkKeyword(ctx context.Context, app *domain.App, keyword *domain.Keyword, provider monitor.Provider, expand bool) checkResult {
	res := checkResult{outcome: Outcome{
		KeywordID: keyword.ID,
		Keyword:   keyword.Keyword,
		Provider:  provider.Name(),
	}}

	queries := []string{keyword.Keyword}
	if expand {
		queries = monitor.ExpandQueries(keyword.Keyword)
	}

	results := make([]*domain.MonitoringResult, 0, len(queries))
	for _, query := range queries {
		result := domain.NewMonitoringResult(app.ID, keyword.ID, provider.Name(), query)

		start := time.Now()
		answer, err := provider.Query(ctx, query)
		if o.metrics != nil {
			o.metrics.RecordProviderQuery(string(provider.Name()), err, time.Since(start))
		}

		if err != nil {
			msg := err.Error()
			result.ErrorText = &msg
			res.outcome.Error = msg
			res.errs = append(res.errs,
				fmt.Sprintf("%s/%s: %s", keyword.Keyword, provider.Name(), msg))
			o.logger.Warn("provider query failed",
				zap.String("provider", string(provider.Name())),
				zap.String("query", query),
				zap.Error(err),
			)
		} else {
			result.Response = answer.Response
			result.Citations = answer.Citations
			result.Links = answer.Links
			if answer.ArtifactURL != "" {
				result.ArtifactURL = &answer.ArtifactURL
			}

			if mention := monitor.DetectMention(answer.Response, app.Name); mention.Found {
				result.Mentioned = true
				result.Sentiment = domain.SentimentNeutral
				mentionCtx := mention.Context
				result.MentionText = &mentionCtx
				res.outcome.Mentioned = true
				res.mentions++
				if o.metrics != nil {
					o.metrics.RecordMention(string(provider.Name()))
				}
			}
		}

		results = append(results, result)
	}

	if err := o.results.Replace(ctx, keyword.ID, provider.Name(), results); err != nil {
		msg := fmt.Sprintf("persisting results: %v", err)
		res.outcome.Error = msg
		res.errs = append(res.errs,
			fmt.Sprintf("%s/%s: %s", keyword.Keyword, provider.Name(), msg))
		o.logger.Error("replacing results failed",
			zap.String("keyword", keyword.Keyword),
			zap.String("provider", string(provider.Name())),
			zap.Error(err),
		)
		return res
	}

	res.created = len(results)
	return res
}

// selectProviders filters the registered providers by name.
func (o *Orchestrator) selectProviders(names []domain.Provider) []monitor.Provider {
	if len(names) == 0 {
		return o.providers
	}

	wanted := make(map[domain.Provider]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var selected []monitor.Provider
	for _, p := range o.providers {
		if wanted[p.Name()] {
			selected = append(selected, p)
		}
	}
	return selected
}
