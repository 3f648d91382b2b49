// Package monitor implements the answer-engine providers and the text
// analysis helpers shared between them. A provider submits one natural
// language query to an AI answer engine and returns the normalized
// answer together with the sources the engine attributed.
package monitor

import (
	"context"

	"github.com/geowatch/geowatch/internal/domain"
)

// Answer is the normalized outcome of a single provider query.
type Answer struct {
	Provider  domain.Provider
	Query     string
	Response  string
	Citations []domain.Citation
	Links     []domain.Link

	// ArtifactURL points at an uploaded evidence screenshot, when the
	// provider captured one.
	ArtifactURL string
}

// Provider queries one AI answer engine.
type Provider interface {
	// Name identifies the provider in results and logs.
	Name() domain.Provider

	// Query submits the query text and blocks until the engine has
	// produced a complete answer or the context is cancelled.
	Query(ctx context.Context, query string) (*Answer, error)
}

// ConcurrentQuerier is implemented by providers whose queries carry no
// shared session state and may run in parallel. The interactive
// browser provider is deliberately not one: concurrent typed inputs
// against the shared browser cross-talk.
type ConcurrentQuerier interface {
	ConcurrentQueries() bool
}
