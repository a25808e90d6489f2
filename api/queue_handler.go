package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/xraph/crontab/queue"
)

// QueueConfigRequest replaces the remote-dispatch limits of one queue.
type QueueConfigRequest struct {
	MaxConcurrency int     `json:"max_concurrency"`
	RateLimit      float64 `json:"rate_limit"`
	RateBurst      int     `json:"rate_burst"`
}

// QueueConfigResponse echoes the limits now in force.
type QueueConfigResponse struct {
	Name           string  `json:"name"`
	MaxConcurrency int     `json:"max_concurrency"`
	RateLimit      float64 `json:"rate_limit"`
	RateBurst      int     `json:"rate_burst"`
}

// setQueueConfig changes a queue's throttling without a restart. Calls
// already in flight keep the slot they hold under the old limits.
func (a *API) setQueueConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		a.writeError(w, badRequest("queue name is required"))
		return
	}

	var req QueueConfigRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		a.writeError(w, badRequest("decode body: %v", err))
		return
	}
	if req.MaxConcurrency < 0 || req.RateLimit < 0 || req.RateBurst < 0 {
		a.writeError(w, badRequest("queue limits must not be negative"))
		return
	}

	a.eng.QueueManager().SetQueueConfig(queue.Config{
		Name:           name,
		MaxConcurrency: req.MaxConcurrency,
		RateLimit:      req.RateLimit,
		RateBurst:      req.RateBurst,
	})
	a.writeJSON(w, http.StatusOK, QueueConfigResponse{
		Name:           name,
		MaxConcurrency: req.MaxConcurrency,
		RateLimit:      req.RateLimit,
		RateBurst:      req.RateBurst,
	})
}
