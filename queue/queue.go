package queue

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-queue limits on remote dispatch.
type Config struct {
	// Name is the queue identifier.
	Name string

	// MaxConcurrency limits how many remote calls for this queue may be in
	// flight at once. Zero means no limit.
	MaxConcurrency int

	// RateLimit is the maximum sustained remote calls per second for this
	// queue. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// queueState tracks runtime state for a single queue.
type queueState struct {
	config  Config
	limiter *rate.Limiter
	slots   chan struct{}
}

// Manager controls per-queue rate limiting and concurrency.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*queueState
}

// NewManager creates a Manager with the given queue configurations.
// Queues not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		queues: make(map[string]*queueState, len(configs)),
	}
	for _, cfg := range configs {
		m.queues[cfg.Name] = newQueueState(cfg)
	}
	return m
}

func newQueueState(cfg Config) *queueState {
	qs := &queueState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		qs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.MaxConcurrency > 0 {
		qs.slots = make(chan struct{}, cfg.MaxConcurrency)
	}
	return qs
}

func (m *Manager) state(queue string) *queueState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[queue]
}

// Acquire waits until the queue's rate limit and concurrency allow one more
// call. The caller MUST call Release when the call completes. It returns the
// context error if ctx ends first.
func (m *Manager) Acquire(ctx context.Context, queue string) error {
	qs := m.state(queue)
	if qs == nil {
		return nil
	}
	if qs.limiter != nil {
		if err := qs.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if qs.slots != nil {
		select {
		case qs.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release frees the concurrency slot taken by Acquire.
func (m *Manager) Release(queue string) {
	qs := m.state(queue)
	if qs == nil || qs.slots == nil {
		return
	}
	select {
	case <-qs.slots:
	default:
	}
}

// SetQueueConfig replaces (or creates) a queue configuration. Slots held
// under the old configuration are not carried over.
func (m *Manager) SetQueueConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[cfg.Name] = newQueueState(cfg)
}

// ActiveCount returns the current number of in-flight calls for a queue.
func (m *Manager) ActiveCount(queue string) int {
	qs := m.state(queue)
	if qs == nil || qs.slots == nil {
		return 0
	}
	return len(qs.slots)
}

// Queues returns the names of every configured queue, sorted.
func (m *Manager) Queues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.queues))
	for name := range m.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
