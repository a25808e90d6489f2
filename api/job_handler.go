package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/job"
	"github.com/xraph/crontab/listener"
)

// maxBodySize bounds a submission body.
const maxBodySize = 1 << 20

// OccurrencesResponse lists the pending due times of a job name.
type OccurrencesResponse struct {
	Name string  `json:"name"`
	Due  []int64 `json:"due"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", crontab.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// submitJob accepts the same JSON request the listeners do.
func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, badRequest("read body: %v", err))
		return
	}

	req, err := listener.GetCodec(listener.CodecNameJSON).Decode(body)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.eng.Submit(r.Context(), req.Submission(a.eng.RetryStack)); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// cancelJob cancels every occurrence of a name, or the one due at ?at=.
func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		a.writeError(w, badRequest("job name is required"))
		return
	}

	var at int64
	if v := r.URL.Query().Get("at"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			a.writeError(w, badRequest("at must be a positive unix timestamp"))
			return
		}
		at = n
	}

	if err := a.eng.Cancel(r.Context(), name, at); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) occurrences(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	dues, err := a.eng.Store().Occurrences(r.Context(), job.NameHash(name))
	if err != nil {
		a.writeError(w, fmt.Errorf("occurrences: %w", err))
		return
	}
	if dues == nil {
		dues = []int64{}
	}
	a.writeJSON(w, http.StatusOK, OccurrencesResponse{Name: name, Due: dues})
}
