package app

import (
	"github.com/koreanvocab/vocab-dashboard/internal/api/feed"
	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Client talks to the flashcard and status services
	Client remote.Client

	// Poller keeps the health of both services current
	Poller *health.Poller

	// Synchronizer owns the shared coverage state
	Synchronizer *coverage.Synchronizer

	// Feed streams state changes to browser views
	Feed *feed.Handler
}
