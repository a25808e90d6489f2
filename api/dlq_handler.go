package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/crontab/dlq"
	"github.com/xraph/crontab/id"
)

// defaultPurgeAge is used by purge when no older_than is given.
const defaultPurgeAge = 30 * 24 * time.Hour

// PurgeDLQResponse reports how many entries a purge removed.
type PurgeDLQResponse struct {
	Purged int64 `json:"purged"`
}

// DLQCountResponse holds the number of DLQ entries.
type DLQCountResponse struct {
	Count int64 `json:"count"`
}

func (a *API) listDLQ(w http.ResponseWriter, r *http.Request) {
	svc := a.eng.DLQService()
	limit, err := intQuery(r, "limit")
	if err != nil {
		a.writeError(w, err)
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		a.writeError(w, err)
		return
	}

	entries, err := svc.DLQStore().ListDLQ(r.Context(), dlq.ListOpts{
		Limit:  defaultLimit(limit),
		Offset: offset,
		Queue:  r.URL.Query().Get("queue"),
	})
	if err != nil {
		a.writeError(w, fmt.Errorf("list dlq: %w", err))
		return
	}
	if entries == nil {
		entries = []*dlq.Entry{}
	}
	a.writeJSON(w, http.StatusOK, entries)
}

func (a *API) getDLQ(w http.ResponseWriter, r *http.Request) {
	svc := a.eng.DLQService()
	entryID, err := id.ParseDLQID(r.PathValue("entryId"))
	if err != nil {
		a.writeError(w, badRequest("invalid DLQ entry ID: %v", err))
		return
	}

	entry, err := svc.DLQStore().GetDLQ(r.Context(), entryID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, entry)
}

func (a *API) replayDLQ(w http.ResponseWriter, r *http.Request) {
	svc := a.eng.DLQService()
	entryID, err := id.ParseDLQID(r.PathValue("entryId"))
	if err != nil {
		a.writeError(w, badRequest("invalid DLQ entry ID: %v", err))
		return
	}

	entry, err := svc.Replay(r.Context(), entryID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, entry)
}

// purgeDLQ removes entries older than ?older_than= (a duration).
func (a *API) purgeDLQ(w http.ResponseWriter, r *http.Request) {
	svc := a.eng.DLQService()

	age := defaultPurgeAge
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			a.writeError(w, badRequest("older_than must be a non-negative duration"))
			return
		}
		age = d
	}

	count, err := svc.DLQStore().PurgeDLQ(r.Context(), time.Now().UTC().Add(-age))
	if err != nil {
		a.writeError(w, fmt.Errorf("purge dlq: %w", err))
		return
	}
	a.writeJSON(w, http.StatusOK, PurgeDLQResponse{Purged: count})
}

func (a *API) dlqCount(w http.ResponseWriter, r *http.Request) {
	svc := a.eng.DLQService()
	count, err := svc.DLQStore().CountDLQ(r.Context())
	if err != nil {
		a.writeError(w, fmt.Errorf("count dlq: %w", err))
		return
	}
	a.writeJSON(w, http.StatusOK, DLQCountResponse{Count: count})
}
