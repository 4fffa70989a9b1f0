package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/scheduler"
)

type failoverView struct {
	Domain     string   `json:"domain"`
	Candidates []string `json:"candidates"`
	Current    string   `json:"current"`
	Next       string   `json:"next"`
}

type targetView struct {
	Name            string        `json:"name"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	IntervalSeconds int           `json:"interval_seconds"`
	ConfirmSeconds  int           `json:"confirm_interval_seconds"`
	Failover        *failoverView `json:"failover"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	cycles := s.Sched.Cycles()
	out := make([]targetView, 0, len(cycles))
	for _, c := range cycles {
		t := c.Target
		v := targetView{
			Name:            t.Name,
			Host:            t.Host,
			Port:            t.Port,
			IntervalSeconds: t.IntervalSeconds,
		}
		if d, ok := t.ConfirmInterval(); ok {
			v.ConfirmSeconds = int(d.Seconds())
		}
		if t.Failover != nil && c.Failover != nil {
			snap := c.Failover.Snapshot()
			v.Failover = &failoverView{
				Domain:     t.Failover.Domain,
				Candidates: c.Failover.Candidates(),
				Current:    snap.Current,
				Next:       snap.Next,
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Results.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("latest_results_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load results")
		return
	}
	if rows == nil {
		rows = []domain.CheckResult{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	rows, err := s.Results.History(r.Context(), name, limit)
	if err != nil {
		s.Logger.Warn("history_error", zap.String("target", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load results")
		return
	}
	if rows == nil {
		rows = []domain.CheckResult{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleCheckNow runs one full cycle for the target, including the push and
// any failover it triggers.
func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, err := s.Sched.RunOnce(r.Context(), name)
	if errors.Is(err, scheduler.ErrUnknownTarget) {
		writeError(w, http.StatusNotFound, "unknown target")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Logger.Info("manual_check",
		zap.String("target", name),
		zap.Bool("up", res.Up),
		zap.Int64("ping", res.LatencyMS),
	)
	writeJSON(w, http.StatusOK, res)
}
