package api

import (
	"fmt"
	"net/http"
	"slices"
)

// StatsResponse is a snapshot of the engine's persisted state.
type StatsResponse struct {
	Delayed      DelayStats            `json:"delayed"`
	ActiveTokens int64                 `json:"active_tokens"`
	Queues       map[string]QueueStats `json:"queues"`
	DLQCount     int64                 `json:"dlq_count"`
	Handlers     []string              `json:"handlers"`
}

// DelayStats summarizes the delay index.
type DelayStats struct {
	Buckets int    `json:"buckets"`
	Jobs    int64  `json:"jobs"`
	NextDue *int64 `json:"next_due,omitempty"`
}

// QueueStats describes one named queue.
type QueueStats struct {
	Length   int64 `json:"length"`
	InFlight int   `json:"in_flight"`
}

// stats reports the default queue, every throttled queue and any queue
// named with ?queue=.
func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := a.eng.Store()

	dues, err := st.DelayIndex(ctx)
	if err != nil {
		a.writeError(w, fmt.Errorf("delay index: %w", err))
		return
	}
	delayed := DelayStats{Buckets: len(dues)}
	for _, due := range dues {
		n, lenErr := st.BucketLen(ctx, due)
		if lenErr != nil {
			a.writeError(w, fmt.Errorf("bucket %d: %w", due, lenErr))
			return
		}
		delayed.Jobs += n
	}
	if len(dues) > 0 {
		next := dues[0]
		delayed.NextDue = &next
	}

	active, err := st.ActiveLen(ctx)
	if err != nil {
		a.writeError(w, fmt.Errorf("active index: %w", err))
		return
	}

	names := append([]string{a.eng.Config().DefaultQueue}, a.eng.QueueManager().Queues()...)
	names = append(names, r.URL.Query()["queue"]...)
	slices.Sort(names)
	names = slices.Compact(names)

	queues := make(map[string]QueueStats, len(names))
	for _, name := range names {
		n, lenErr := st.QueueLen(ctx, name)
		if lenErr != nil {
			a.writeError(w, fmt.Errorf("queue %s: %w", name, lenErr))
			return
		}
		queues[name] = QueueStats{
			Length:   n,
			InFlight: a.eng.QueueManager().ActiveCount(name),
		}
	}

	dlqCount, err := a.eng.DLQService().DLQStore().CountDLQ(ctx)
	if err != nil {
		a.writeError(w, fmt.Errorf("count dlq: %w", err))
		return
	}

	a.writeJSON(w, http.StatusOK, StatsResponse{
		Delayed:      delayed,
		ActiveTokens: active,
		Queues:       queues,
		DLQCount:     dlqCount,
		Handlers:     a.eng.Registry().Names(),
	})
}
