// Package coverage keeps the dashboard's shared view of target lists and vocabulary
// coverage in sync with the flashcard service.
//
// One Synchronizer is built per session and handed to every consumer. Each fetch is
// tagged with a request generation, and its result is only applied while that tag is
// still the latest one, so the state always reflects the most recently issued request
// no matter in which order responses arrive.
package coverage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/koreanvocab/vocab-dashboard/internal/broadcast"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
	"github.com/koreanvocab/vocab-dashboard/internal/telemetry"
)

// DefaultSummaryLimit is the missing-word limit used by summary views
const DefaultSummaryLimit = 5

// CoverageSource is the part of the remote client the synchronizer depends on.
type CoverageSource interface {
	FetchAvailableLists(ctx context.Context) (remote.TargetLists, error)
	FetchCoverage(ctx context.Context, list remote.TargetListDescriptor, limit int) (remote.CoverageResult, error)
}

// errSuperseded stops Initialize from overriding a newer request
var errSuperseded = errors.New("superseded")

// Synchronizer owns SyncState and is its only writer.
type Synchronizer struct {
	source       CoverageSource
	summaryLimit int
	metrics      *telemetry.CoverageMetrics

	mu    sync.RWMutex
	state SyncState
	// cancelInFlight aborts the request the current generation superseded
	cancelInFlight context.CancelFunc

	// commitMu keeps replacements and their notifications in the same order
	commitMu sync.Mutex
	hub      *broadcast.Hub[SyncState]
}

// Option is a function that configures the synchronizer
type Option func(*Synchronizer)

// WithSummaryLimit sets the limit used by Initialize and RefreshSummary
func WithSummaryLimit(limit int) Option {
	return func(s *Synchronizer) {
		if limit >= 0 {
			s.summaryLimit = limit
		}
	}
}

// WithMetrics sets the fetch metrics for the synchronizer
func WithMetrics(metrics *telemetry.CoverageMetrics) Option {
	return func(s *Synchronizer) {
		s.metrics = metrics
	}
}

// New creates a synchronizer with an empty state
func New(source CoverageSource, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		source:       source,
		summaryLimit: DefaultSummaryLimit,
		hub:          broadcast.New[SyncState](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SummaryLimit returns the missing-word limit used for summary fetches
func (s *Synchronizer) SummaryLimit() int {
	return s.summaryLimit
}

// State returns a copy of the current state
func (s *Synchronizer) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers fn to be called after every state replacement, in
// replacement order. fn must not call the synchronizer's mutating methods
// on the notifying goroutine.
func (s *Synchronizer) Subscribe(fn func(SyncState)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Initialize loads the available lists, selects the service's default and fetches
// its coverage with the summary limit. Remote failures are recorded in the state;
// on failure no list is selected. It returns once every fetch it issued has settled.
func (s *Synchronizer) Initialize(ctx context.Context) error {
	gen, fetchCtx, done, _ := s.begin(ctx, func(st *SyncState) error {
		st.Loading = true
		st.Error = ""
		return nil
	})
	defer done()

	lists, err := s.source.FetchAvailableLists(fetchCtx)

	var selected remote.TargetListDescriptor
	applied := s.commit(gen, func(st *SyncState) {
		if err != nil {
			st.Loading = false
			st.Error = err.Error()
			return
		}
		st.AvailableLists = lists.Lists
		st.Error = ""
		if lists.Default.IsZero() {
			st.SelectedList = nil
			st.Loading = false
			return
		}
		// the coverage fetch below keeps Loading set
		def := lists.Default
		st.SelectedList = &def
		selected = def
	})

	switch {
	case !applied:
		slog.Debug("Dropping superseded target list result", "generation", gen)
		return nil
	case err != nil:
		slog.Warn("Failed to load target lists", "error", err, "kind", remote.Classify(err))
		return nil
	case selected.IsZero():
		slog.Info("Target lists loaded without a default", "count", len(lists.Lists))
		return nil
	}

	slog.Info("Target lists loaded", "count", len(lists.Lists), "default", selected.Identifier)

	err = s.fetch(ctx, "initialize", s.summaryLimit, func(st *SyncState) (remote.TargetListDescriptor, error) {
		// a selection made after the lists arrived wins over the default
		if st.RequestGeneration != gen {
			return selected, errSuperseded
		}
		return selected, nil
	})
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

// LoadLists replaces the available lists without selecting the default or fetching
// coverage. A selection that is no longer offered is cleared. Remote failures are
// recorded in the state like Initialize does.
func (s *Synchronizer) LoadLists(ctx context.Context) error {
	gen, fetchCtx, done, _ := s.begin(ctx, func(st *SyncState) error {
		st.Loading = true
		st.Error = ""
		return nil
	})
	defer done()

	lists, err := s.source.FetchAvailableLists(fetchCtx)

	applied := s.commit(gen, func(st *SyncState) {
		st.Loading = false
		if err != nil {
			st.Error = err.Error()
			return
		}
		st.AvailableLists = lists.Lists
		if st.SelectedList != nil && !st.IsAvailable(*st.SelectedList) {
			st.SelectedList = nil
		}
	})

	switch {
	case !applied:
		slog.Debug("Dropping superseded target list result", "generation", gen)
	case err != nil:
		slog.Warn("Failed to load target lists", "error", err, "kind", remote.Classify(err))
	default:
		slog.Info("Target lists loaded", "count", len(lists.Lists))
	}
	return nil
}

// SelectList makes list the selection and fetches its coverage with the given
// missing-word limit (0 for all). It returns a ValidationError without sending a
// request when no lists are loaded or list is not one of them.
func (s *Synchronizer) SelectList(ctx context.Context, list remote.TargetListDescriptor, limit int) error {
	return s.fetch(ctx, opSelect, limit, selectRule(list, limit))
}

// StartSelect is SelectList split in two. The selection is validated and takes its
// request generation before StartSelect returns; the returned func performs the
// fetch. Callers that acknowledge a selection before fetching use it so that the
// order of acknowledgements is the order of generations.
func (s *Synchronizer) StartSelect(ctx context.Context, list remote.TargetListDescriptor, limit int) (func(), error) {
	return s.start(ctx, opSelect, limit, selectRule(list, limit))
}

// Refresh re-fetches coverage for the current selection with an explicit limit.
// The selection itself is not changed.
func (s *Synchronizer) Refresh(ctx context.Context, limit int) error {
	return s.fetch(ctx, opRefresh, limit, refreshRule(limit))
}

// StartRefresh is StartSelect for Refresh.
func (s *Synchronizer) StartRefresh(ctx context.Context, limit int) (func(), error) {
	return s.start(ctx, opRefresh, limit, refreshRule(limit))
}

const (
	opSelect  = "select list"
	opRefresh = "refresh"
)

func selectRule(list remote.TargetListDescriptor, limit int) func(*SyncState) (remote.TargetListDescriptor, error) {
	return func(st *SyncState) (remote.TargetListDescriptor, error) {
		switch {
		case limit < 0:
			return list, &ValidationError{Op: opSelect, List: list.Identifier, Err: ErrInvalidLimit}
		case !st.HasLists():
			return list, &ValidationError{Op: opSelect, List: list.Identifier, Err: ErrNoListsLoaded}
		case !st.IsAvailable(list):
			return list, &ValidationError{Op: opSelect, List: list.Identifier, Err: ErrUnknownList}
		}
		return list, nil
	}
}

func refreshRule(limit int) func(*SyncState) (remote.TargetListDescriptor, error) {
	return func(st *SyncState) (remote.TargetListDescriptor, error) {
		switch {
		case limit < 0:
			return remote.TargetListDescriptor{}, &ValidationError{Op: opRefresh, Err: ErrInvalidLimit}
		case !st.HasLists():
			return remote.TargetListDescriptor{}, &ValidationError{Op: opRefresh, Err: ErrNoListsLoaded}
		case st.SelectedList == nil:
			return remote.TargetListDescriptor{}, &ValidationError{Op: opRefresh, Err: ErrNoSelection}
		}
		return *st.SelectedList, nil
	}
}

// RefreshSummary is Refresh with the summary limit.
func (s *Synchronizer) RefreshSummary(ctx context.Context) error {
	return s.Refresh(ctx, s.summaryLimit)
}

// fetch is start followed by the fetch it returns.
func (s *Synchronizer) fetch(
	ctx context.Context,
	op string,
	limit int,
	resolve func(*SyncState) (remote.TargetListDescriptor, error),
) error {
	run, err := s.start(ctx, op, limit, resolve)
	if err != nil {
		return err
	}
	run()
	return nil
}

// start begins a new generation for the list chosen by resolve and returns the
// fetch that applies the response if that generation is still current when it
// arrives. resolve runs under the state lock; an error from it leaves the state
// untouched.
func (s *Synchronizer) start(
	ctx context.Context,
	op string,
	limit int,
	resolve func(*SyncState) (remote.TargetListDescriptor, error),
) (func(), error) {
	var list remote.TargetListDescriptor
	gen, fetchCtx, done, err := s.begin(ctx, func(st *SyncState) error {
		resolved, err := resolve(st)
		if err != nil {
			return err
		}
		list = resolved
		st.SelectedList = &resolved
		st.Loading = true
		st.Error = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		defer done()
		s.receive(ctx, fetchCtx, op, gen, list, limit)
	}, nil
}

func (s *Synchronizer) receive(
	ctx, fetchCtx context.Context,
	op string,
	gen uint64,
	list remote.TargetListDescriptor,
	limit int,
) {
	start := time.Now()
	result, fetchErr := s.source.FetchCoverage(fetchCtx, list, limit)
	s.metrics.RecordFetch(ctx, list.Identifier, time.Since(start), fetchErr == nil)

	applied := s.commit(gen, func(st *SyncState) {
		st.Loading = false
		if fetchErr != nil {
			// last known coverage stays visible next to the error
			st.Error = fetchErr.Error()
			return
		}
		c := result.Clone()
		st.Coverage = &c
		st.Error = ""
	})

	switch {
	case !applied:
		s.metrics.RecordStaleResult(ctx, list.Identifier)
		slog.Debug("Dropping stale coverage result",
			"op", op,
			"list", list.Identifier,
			"generation", gen)
	case fetchErr != nil:
		slog.Warn("Coverage fetch failed",
			"op", op,
			"list", list.Identifier,
			"kind", remote.Classify(fetchErr),
			"error", fetchErr)
	default:
		slog.Debug("Coverage updated",
			"op", op,
			"list", list.Identifier,
			"limit", limit,
			"coverage_percentage", result.CoveragePercentage)
	}
}

// begin runs prepare, advances the request generation and publishes, all as one
// replacement. The request of the superseded generation is canceled.
// The returned done func releases the new request's context.
func (s *Synchronizer) begin(
	ctx context.Context,
	prepare func(*SyncState) error,
) (uint64, context.Context, context.CancelFunc, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	next := s.state.Clone()
	if err := prepare(&next); err != nil {
		s.mu.Unlock()
		return 0, nil, nil, err
	}

	next.RequestGeneration++
	s.state = next
	gen := next.RequestGeneration

	if s.cancelInFlight != nil {
		s.cancelInFlight()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel

	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.hub.Publish(snapshot)
	return gen, fetchCtx, cancel, nil
}

// commit applies mutate and publishes only while gen is the current generation.
func (s *Synchronizer) commit(gen uint64, mutate func(*SyncState)) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if gen != s.state.RequestGeneration {
		s.mu.Unlock()
		return false
	}
	mutate(&s.state)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.hub.Publish(snapshot)
	return true
}
