package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koreanvocab/vocab-dashboard/internal/broadcast"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
	"github.com/koreanvocab/vocab-dashboard/internal/telemetry"
)

// DefaultInterval is the time between poll cycles
const DefaultInterval = 10 * time.Second

// Prober runs one probe against each monitored service.
// Probes report failures in the returned ServiceHealth and never panic or retry.
type Prober interface {
	ProbeFlashcardService(ctx context.Context) remote.ServiceHealth
	ProbeStatusService(ctx context.Context) remote.ServiceHealth
}

// Snapshot is the health of both services. It is always replaced as a whole.
type Snapshot struct {
	Flashcard remote.ServiceHealth `json:"flashcard"`
	Status    remote.ServiceHealth `json:"status"`
}

// AllConnected reports whether both services answered the last probe
func (s Snapshot) AllConnected() bool {
	return s.Flashcard.Connected && s.Status.Connected
}

// Poller owns the health snapshot and the loop that refreshes it.
type Poller struct {
	prober  Prober
	metrics *telemetry.HealthMetrics

	mu       sync.RWMutex
	snapshot Snapshot
	current  *Handle

	// commitMu keeps replacements and their notifications in the same order
	commitMu sync.Mutex
	hub      *broadcast.Hub[Snapshot]
}

// Option is a function that configures the poller
type Option func(*Poller)

// WithMetrics sets the probe metrics for the poller
func WithMetrics(metrics *telemetry.HealthMetrics) Option {
	return func(p *Poller) {
		p.metrics = metrics
	}
}

// New creates a poller whose services start out in the checking state.
func New(prober Prober, opts ...Option) *Poller {
	p := &Poller{
		prober: prober,
		hub:    broadcast.New[Snapshot](),
		snapshot: Snapshot{
			Flashcard: remote.Checking(),
			Status:    remote.Checking(),
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Snapshot returns the current health pair
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subscribe registers fn to receive every published snapshot.
// fn runs on the polling goroutine and must not block for long.
func (p *Poller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return p.hub.Subscribe(fn)
}

// Start runs one cycle immediately and then one every interval until the handle
// is stopped or ctx is done. An interval <= 0 means DefaultInterval.
// Starting again stops the previous handle.
func (p *Poller) Start(ctx context.Context, interval time.Duration) *Handle {
	if interval <= 0 {
		interval = DefaultInterval
	}

	h := &Handle{
		poller:  p,
		stop:    make(chan struct{}),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.current
	p.current = h
	p.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	slog.Info("Starting health poller", "interval", interval)
	go p.run(ctx, h, interval)

	return h
}

// Refresh asks the running loop for an immediate cycle.
// It returns false when no loop is running.
func (p *Poller) Refresh() bool {
	p.mu.RLock()
	h := p.current
	p.mu.RUnlock()

	if h == nil {
		return false
	}
	h.Refresh()
	return true
}

// RunOnce performs a single cycle on the caller's goroutine and returns its result.
func (p *Poller) RunOnce(ctx context.Context) Snapshot {
	return p.cycle(ctx, nil)
}

func (p *Poller) run(ctx context.Context, h *Handle, interval time.Duration) {
	defer close(h.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.cycle(ctx, h)

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			h.Stop()
			return
		case <-ticker.C:
			p.cycle(ctx, h)
		case <-h.refresh:
			p.cycle(ctx, h)
			ticker.Reset(interval)
		}
	}
}

// cycle publishes the checking state, probes both services and publishes the
// results together. With a non-nil handle nothing is written once it is stopped.
func (p *Poller) cycle(ctx context.Context, h *Handle) Snapshot {
	prev := p.Snapshot()
	checking := Snapshot{
		Flashcard: enterChecking(prev.Flashcard),
		Status:    enterChecking(prev.Status),
	}
	if !p.commit(h, checking) {
		return prev
	}

	next := p.probeAll(ctx)
	if h != nil && ctx.Err() != nil {
		// the probes failed because the loop is ending, not because a service is down
		h.Stop()
		return checking
	}
	if !p.commit(h, next) {
		slog.Debug("Discarding probe results from stopped poller")
		return checking
	}

	p.metrics.RecordCycle(ctx)
	return next
}

func (p *Poller) probeAll(ctx context.Context) Snapshot {
	var (
		next Snapshot
		g    errgroup.Group
	)

	g.Go(func() error {
		next.Flashcard = p.probe(ctx, remote.ServiceFlashcard, p.prober.ProbeFlashcardService)
		return nil
	})
	g.Go(func() error {
		next.Status = p.probe(ctx, remote.ServiceStatus, p.prober.ProbeStatusService)
		return nil
	})
	_ = g.Wait()

	return next
}

func (p *Poller) probe(
	ctx context.Context,
	service string,
	fn func(context.Context) remote.ServiceHealth,
) remote.ServiceHealth {
	start := time.Now()
	result := fn(ctx)
	result.Checking = false
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now()
	}

	p.metrics.RecordProbe(ctx, service, time.Since(start), result.Connected)
	return result
}

// commit replaces the snapshot and notifies subscribers.
// It refuses the write when h has been stopped.
func (p *Poller) commit(h *Handle, next Snapshot) bool {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	p.mu.Lock()
	if h != nil && h.stopped {
		p.mu.Unlock()
		return false
	}
	prev := p.snapshot
	p.snapshot = next
	p.mu.Unlock()

	logTransition(remote.ServiceFlashcard, prev.Flashcard, next.Flashcard)
	logTransition(remote.ServiceStatus, prev.Status, next.Status)

	p.hub.Publish(next)
	return true
}

// enterChecking keeps the last known outcome visible while a probe runs.
func enterChecking(h remote.ServiceHealth) remote.ServiceHealth {
	h.Checking = true
	return h
}

func logTransition(service string, prev, next remote.ServiceHealth) {
	if next.Checking {
		return
	}

	switch {
	case next.Connected && !prev.Connected:
		slog.Info("Service reachable", "service", service, "version", next.Version)
	case !next.Connected && (prev.Connected || prev.CheckedAt.IsZero()):
		slog.Warn("Service unreachable", "service", service, "error", next.LastError)
	default:
		slog.Debug("Service probed", "service", service, "connected", next.Connected)
	}
}

// Handle controls one running poll loop.
type Handle struct {
	poller  *Poller
	stop    chan struct{}
	refresh chan struct{}
	done    chan struct{}

	// stopped is guarded by poller.mu
	stopped  bool
	stopOnce sync.Once
}

// Stop ends the loop. No snapshot write from this handle happens after Stop
// returns, including results of probes that were already in flight.
// Requests in flight are left to finish on their own. Safe to call repeatedly.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		p := h.poller

		p.mu.Lock()
		h.stopped = true
		if p.current == h {
			p.current = nil
		}
		p.mu.Unlock()

		close(h.stop)
		slog.Info("Health poller stopped")
	})
}

// Refresh requests an immediate out-of-band cycle. Requests made while a cycle
// is already queued are merged into it.
func (h *Handle) Refresh() {
	select {
	case <-h.stop:
	case h.refresh <- struct{}{}:
	default:
	}
}

// Done is closed once the loop goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
