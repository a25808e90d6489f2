package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/delay"
	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/id"
	"github.com/xraph/crontab/queue"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ delay.Store = (*Store)(nil)
	_ queue.Store = (*Store)(nil)
	_ dlq.Store   = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	index       map[int64]struct{}
	buckets     map[int64][][]byte
	occurrences map[string]map[int64]struct{}

	queues map[string][][]byte
	active []string

	dlqs map[string]*dlq.Entry

	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		index:       make(map[int64]struct{}),
		buckets:     make(map[int64][][]byte),
		occurrences: make(map[string]map[int64]struct{}),
		queues:      make(map[string][][]byte),
		dlqs:        make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Ping / Close
// ──────────────────────────────────────────────────

// Ping reports ErrStoreClosed after Close.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Delay Store
// ──────────────────────────────────────────────────

// AddDelayed appends data to the bucket at due and indexes the occurrence.
func (m *Store) AddDelayed(_ context.Context, due int64, nameHash string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	m.buckets[due] = append(m.buckets[due], clone(data))
	m.index[due] = struct{}{}
	set, ok := m.occurrences[nameHash]
	if !ok {
		set = make(map[int64]struct{})
		m.occurrences[nameHash] = set
	}
	set[due] = struct{}{}
	return nil
}

// NextDue returns the smallest indexed timestamp not after now.
func (m *Store) NextDue(_ context.Context, now int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, false, crontab.ErrStoreClosed
	}

	var (
		best  int64
		found bool
	)
	for due := range m.index {
		if due > now {
			continue
		}
		if !found || due < best {
			best, found = due, true
		}
	}
	return best, found, nil
}

// PopDelayed removes the head of the bucket at due and cleans the index
// once the bucket is empty.
func (m *Store) PopDelayed(_ context.Context, due int64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, crontab.ErrStoreClosed
	}

	data, ok := m.popBucketLocked(due)
	return data, ok, nil
}

// RemoveOccurrence removes due from the occurrence set of nameHash.
func (m *Store) RemoveOccurrence(_ context.Context, nameHash string, due int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	m.removeOccurrenceLocked(nameHash, due)
	return nil
}

// CancelDelayed empties the bucket at due and unindexes it.
func (m *Store) CancelDelayed(_ context.Context, nameHash string, due int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	m.clearBucketLocked(due)
	m.removeOccurrenceLocked(nameHash, due)
	return nil
}

// CancelAllDelayed cancels every recorded occurrence of nameHash.
func (m *Store) CancelAllDelayed(_ context.Context, nameHash string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, crontab.ErrStoreClosed
	}

	dues := sortedKeys(m.occurrences[nameHash])
	for _, due := range dues {
		m.clearBucketLocked(due)
	}
	delete(m.occurrences, nameHash)
	return dues, nil
}

// Occurrences returns the timestamps recorded for nameHash.
func (m *Store) Occurrences(_ context.Context, nameHash string) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, crontab.ErrStoreClosed
	}
	return sortedKeys(m.occurrences[nameHash]), nil
}

// BucketLen returns the number of jobs in the bucket at due.
func (m *Store) BucketLen(_ context.Context, due int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, crontab.ErrStoreClosed
	}
	return int64(len(m.buckets[due])), nil
}

// DelayIndex returns every indexed timestamp.
func (m *Store) DelayIndex(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, crontab.ErrStoreClosed
	}
	return sortedKeys(m.index), nil
}

func (m *Store) popBucketLocked(due int64) ([]byte, bool) {
	bucket := m.buckets[due]
	if len(bucket) == 0 {
		delete(m.buckets, due)
		delete(m.index, due)
		return nil, false
	}

	head := bucket[0]
	if len(bucket) == 1 {
		delete(m.buckets, due)
		delete(m.index, due)
	} else {
		m.buckets[due] = bucket[1:]
	}
	return head, true
}

func (m *Store) clearBucketLocked(due int64) {
	delete(m.buckets, due)
	delete(m.index, due)
}

func (m *Store) removeOccurrenceLocked(nameHash string, due int64) {
	set, ok := m.occurrences[nameHash]
	if !ok {
		return
	}
	delete(set, due)
	if len(set) == 0 {
		delete(m.occurrences, nameHash)
	}
}

// ──────────────────────────────────────────────────
// Queue Store
// ──────────────────────────────────────────────────

// PushReady appends data to the named queue, then the queue name to the
// active index.
func (m *Store) PushReady(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	m.queues[name] = append(m.queues[name], clone(data))
	m.active = append(m.active, name)
	return nil
}

// PopActive removes the head token of the active index.
func (m *Store) PopActive(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, crontab.ErrStoreClosed
	}

	if len(m.active) == 0 {
		return "", false, nil
	}
	name := m.active[0]
	m.active = m.active[1:]
	return name, true, nil
}

// PopReady removes the head of the named queue.
func (m *Store) PopReady(_ context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, crontab.ErrStoreClosed
	}

	q := m.queues[name]
	if len(q) == 0 {
		return nil, false, nil
	}
	head := q[0]
	if len(q) == 1 {
		delete(m.queues, name)
	} else {
		m.queues[name] = q[1:]
	}
	return head, true, nil
}

// QueueLen returns the number of jobs in the named queue.
func (m *Store) QueueLen(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, crontab.ErrStoreClosed
	}
	return int64(len(m.queues[name])), nil
}

// ActiveLen returns the number of tokens in the active index.
func (m *Store) ActiveLen(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, crontab.ErrStoreClosed
	}
	return int64(len(m.active)), nil
}

// ──────────────────────────────────────────────────
// DLQ Store
// ──────────────────────────────────────────────────

// PushDLQ adds a failed job entry to the dead letter queue.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	cp := *entry
	m.dlqs[entry.ID.String()] = &cp
	return nil
}

// ListDLQ returns DLQ entries matching the given options.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, crontab.ErrStoreClosed
	}

	result := make([]*dlq.Entry, 0, len(m.dlqs))
	for _, e := range m.dlqs {
		if opts.Queue != "" && e.Queue != opts.Queue {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].FailedAt.Equal(result[k].FailedAt) {
			return result[i].ID.String() < result[k].ID.String()
		}
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	return dlq.Page(result, opts), nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, crontab.ErrStoreClosed
	}

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return nil, crontab.ErrDLQNotFound
	}
	cp := *e
	return &cp, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.DLQID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return crontab.ErrStoreClosed
	}

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return crontab.ErrDLQNotFound
	}
	at = at.UTC()
	e.ReplayedAt = &at
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, crontab.ErrStoreClosed
	}

	var count int64
	for key, e := range m.dlqs {
		if e.FailedAt.Before(before) {
			delete(m.dlqs, key)
			count++
		}
	}
	return count, nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, crontab.ErrStoreClosed
	}
	return int64(len(m.dlqs)), nil
}

func clone(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}
