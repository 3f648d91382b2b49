package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/monitor"
)

// fakeProvider returns canned answers keyed by query text.
type fakeProvider struct {
	name    domain.Provider
	answers map[string]*monitor.Answer
	err     error
	calls   []string
}

func (f *fakeProvider) Name() domain.Provider { return f.name }

func (f *fakeProvider) Query(_ context.Context, query string) (*monitor.Answer, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if answer, ok := f.answers[query]; ok {
		return answer, nil
	}
	return &monitor.Answer{Provider: f.name, Query: query, Response: "nothing relevant"}, nil
}

// gatedProvider blocks every query until released, so tests can
// observe in-flight parallelism.
type gatedProvider struct {
	name    domain.Provider
	ready   chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Name() domain.Provider   { return p.name }
func (p *gatedProvider) ConcurrentQueries() bool { return true }

func (p *gatedProvider) Query(_ context.Context, query string) (*monitor.Answer, error) {
	p.ready <- struct{}{}
	<-p.release
	return &monitor.Answer{Provider: p.name, Query: query, Response: "nothing relevant"}, nil
}

// fakeResultStore records Replace calls in memory.
type fakeResultStore struct {
	snapshots map[string][]*domain.MonitoringResult
	err       error
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{snapshots: make(map[string][]*domain.MonitoringResult)}
}

func (f *fakeResultStore) Replace(_ context.Context, keywordID uuid.UUID, provider domain.Provider, results []*domain.MonitoringResult) error {
	if f.err != nil {
		return f.err
	}
	f.snapshots[keywordID.String()+"/"+string(provider)] = results
	return nil
}

type fakeKeywordStore struct {
	touched []uuid.UUID
}

func (f *fakeKeywordStore) TouchLastChecked(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

func testApp() *domain.App {
	return domain.NewApp("user_1", "Acme", "acme", "")
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("detects mention against brand name", func(t *testing.T) {
		app := testApp()
		kw := domain.NewKeyword(app.ID, "issue tracker")

		provider := &fakeProvider{
			name: domain.ProviderGoogleAIMode,
			answers: map[string]*monitor.Answer{
				"issue tracker": {
					Provider: domain.ProviderGoogleAIMode,
					Response: "Popular options include Acme and others.",
					Links:    []domain.Link{{URL: "https://review.io/post", Domain: "review.io"}},
				},
			},
		}
		results := newFakeResultStore()
		keywords := &fakeKeywordStore{}

		o := NewOrchestrator([]monitor.Provider{provider}, results, keywords, nil, 1, zap.NewNop())
		stats, err := o.Run(ctx, app, []*domain.Keyword{kw}, Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, stats.KeywordsChecked)
		assert.Equal(t, 1, stats.ResultsCreated)
		assert.Equal(t, 1, stats.Mentions)
		assert.Empty(t, stats.Errors)

		stored := results.snapshots[kw.ID.String()+"/google_ai_mode"]
		require.Len(t, stored, 1)
		assert.True(t, stored[0].Mentioned)
		require.NotNil(t, stored[0].MentionText)
		assert.Contains(t, *stored[0].MentionText, "Acme")
		assert.Equal(t, domain.SentimentNeutral, stored[0].Sentiment)
		assert.Len(t, stored[0].Links, 1)

		assert.Equal(t, []uuid.UUID{kw.ID}, keywords.touched)
	})

	t.Run("provider failure becomes error result", func(t *testing.T) {
		app := testApp()
		kw := domain.NewKeyword(app.ID, "crm")

		failing := &fakeProvider{
			name: domain.ProviderChatGPT,
			err:  errors.New("no Chrome debug endpoint on ports [9222]"),
		}
		working := &fakeProvider{
			name: domain.ProviderGoogleAIMode,
			answers: map[string]*monitor.Answer{
				"crm": {Provider: domain.ProviderGoogleAIMode, Response: "Acme leads the pack."},
			},
		}
		results := newFakeResultStore()

		o := NewOrchestrator([]monitor.Provider{working, failing}, results, &fakeKeywordStore{}, nil, 1, zap.NewNop())
		stats, err := o.Run(ctx, app, []*domain.Keyword{kw}, Options{})
		require.NoError(t, err)

		// The failed provider still produced a persisted snapshot.
		assert.Equal(t, 2, stats.ResultsCreated)
		require.Len(t, stats.Errors, 1)
		assert.Contains(t, stats.Errors[0], "crm/chatgpt")

		errored := results.snapshots[kw.ID.String()+"/chatgpt"]
		require.Len(t, errored, 1)
		assert.False(t, errored[0].Mentioned)
		require.NotNil(t, errored[0].ErrorText)
		assert.Contains(t, *errored[0].ErrorText, "Chrome debug endpoint")

		ok := results.snapshots[kw.ID.String()+"/google_ai_mode"]
		require.Len(t, ok, 1)
		assert.True(t, ok[0].Mentioned)
	})

	t.Run("skips paused keywords", func(t *testing.T) {
		app := testApp()
		active := domain.NewKeyword(app.ID, "active kw")
		paused := domain.NewKeyword(app.ID, "paused kw")
		paused.Status = domain.KeywordStatusPaused

		provider := &fakeProvider{name: domain.ProviderGoogleAIMode}
		results := newFakeResultStore()
		keywords := &fakeKeywordStore{}

		o := NewOrchestrator([]monitor.Provider{provider}, results, keywords, nil, 1, zap.NewNop())
		stats, err := o.Run(ctx, app, []*domain.Keyword{active, paused}, Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, stats.KeywordsChecked)
		assert.Equal(t, []string{"active kw"}, provider.calls)
		assert.Equal(t, []uuid.UUID{active.ID}, keywords.touched)
	})

	t.Run("provider filter", func(t *testing.T) {
		app := testApp()
		kw := domain.NewKeyword(app.ID, "crm")

		google := &fakeProvider{name: domain.ProviderGoogleAIMode}
		chat := &fakeProvider{name: domain.ProviderChatGPT}

		o := NewOrchestrator([]monitor.Provider{google, chat}, newFakeResultStore(), &fakeKeywordStore{}, nil, 1, zap.NewNop())
		_, err := o.Run(ctx, app, []*domain.Keyword{kw}, Options{
			Providers: []domain.Provider{domain.ProviderGoogleAIMode},
		})
		require.NoError(t, err)

		assert.Len(t, google.calls, 1)
		assert.Empty(t, chat.calls)
	})

	t.Run("no providers selected", func(t *testing.T) {
		o := NewOrchestrator(nil, newFakeResultStore(), &fakeKeywordStore{}, nil, 1, zap.NewNop())
		_, err := o.Run(ctx, testApp(), nil, Options{})
		require.Error(t, err)
	})

	t.Run("expand fans out query templates", func(t *testing.T) {
		app := testApp()
		kw := domain.NewKeyword(app.ID, "crm")

		provider := &fakeProvider{name: domain.ProviderGoogleAIMode}
		results := newFakeResultStore()

		o := NewOrchestrator([]monitor.Provider{provider}, results, &fakeKeywordStore{}, nil, 1, zap.NewNop())
		stats, err := o.Run(ctx, app, []*domain.Keyword{kw}, Options{Expand: true})
		require.NoError(t, err)

		assert.Equal(t, 5, stats.ResultsCreated)
		assert.Len(t, provider.calls, 5)
		assert.Contains(t, provider.calls, "best crm")

		stored := results.snapshots[kw.ID.String()+"/google_ai_mode"]
		assert.Len(t, stored, 5)
	})

	t.Run("persist failure is accumulated", func(t *testing.T) {
		app := testApp()
		kw := domain.NewKeyword(app.ID, "crm")

		provider := &fakeProvider{name: domain.ProviderGoogleAIMode}
		results := newFakeResultStore()
		results.err = errors.New("connection refused")

		o := NewOrchestrator([]monitor.Provider{provider}, results, &fakeKeywordStore{}, nil, 1, zap.NewNop())
		stats, err := o.Run(ctx, app, []*domain.Keyword{kw}, Options{})
		require.NoError(t, err)

		assert.Equal(t, 0, stats.ResultsCreated)
		require.Len(t, stats.Errors, 1)
		assert.Contains(t, stats.Errors[0], "persisting results")
	})

	t.Run("http queries fan out concurrently", func(t *testing.T) {
		app := testApp()
		kws := []*domain.Keyword{
			domain.NewKeyword(app.ID, "first keyword"),
			domain.NewKeyword(app.ID, "second keyword"),
			domain.NewKeyword(app.ID, "third keyword"),
		}

		provider := &gatedProvider{
			name:    domain.ProviderGoogleAIMode,
			ready:   make(chan struct{}, len(kws)),
			release: make(chan struct{}),
		}

		o := NewOrchestrator([]monitor.Provider{provider}, newFakeResultStore(), &fakeKeywordStore{}, nil, 3, zap.NewNop())

		statsCh := make(chan *RunStats, 1)
		errCh := make(chan error, 1)
		go func() {
			stats, err := o.Run(ctx, app, kws, Options{})
			statsCh <- stats
			errCh <- err
		}()

		// All three queries must be in flight before any is allowed
		// to finish.
		for i := 0; i < len(kws); i++ {
			select {
			case <-provider.ready:
			case <-time.After(5 * time.Second):
				t.Fatal("queries did not run in parallel")
			}
		}
		close(provider.release)

		stats := <-statsCh
		require.NoError(t, <-errCh)
		assert.Equal(t, 3, stats.KeywordsChecked)
		assert.Equal(t, 3, stats.ResultsCreated)
		assert.Len(t, stats.Outcomes, 3)
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		app := testApp()
		kw := domain.NewKeyword(app.ID, "crm")

		o := NewOrchestrator([]monitor.Provider{&fakeProvider{name: domain.ProviderGoogleAIMode}},
			newFakeResultStore(), &fakeKeywordStore{}, nil, 1, zap.NewNop())
		_, err := o.Run(cancelled, app, []*domain.Keyword{kw}, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
