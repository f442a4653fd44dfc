package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/wesm/flowstate/internal/flow"
)

type snapshot struct {
	sessions []flow.Session
	tasks    []flow.Task
}

// sharedSource serves store snapshots through the server's
// singleflight group. The engine never mutates its input, so the
// shared slices are safe to hand to concurrent reports.
type sharedSource struct{ s *Server }

// Snapshot loads userID's snapshot, joining a load already in
// flight. The load is detached from ctx so one caller going away
// does not fail the others; it is bounded by the write timeout
// instead.
func (src sharedSource) Snapshot(
	ctx context.Context, userID string,
) ([]flow.Session, []flow.Task, error) {
	v, err, _ := src.s.snapshots.Do(userID, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if d := src.s.cfg.WriteTimeout; d > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, d)
			defer cancel()
		}
		sessions, tasks, err := src.s.db.Snapshot(loadCtx, userID)
		if err != nil {
			return nil, err
		}
		snapshotSessions.Observe(float64(len(sessions)))
		return snapshot{sessions: sessions, tasks: tasks}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	snap := v.(snapshot)
	return snap.sessions, snap.tasks, nil
}

// flowParams reads the query parameters shared by the flow
// endpoints. ok is false once an error response has been written.
func (s *Server) flowParams(
	w http.ResponseWriter, r *http.Request,
) (user string, in flow.Input, ok bool) {
	loc, ok := s.locationParam(w, r)
	if !ok {
		return "", in, false
	}
	offset, ok := parseIntParam(w, r, "week_offset")
	if !ok {
		return "", in, false
	}
	if offset > 0 {
		writeError(w, http.StatusBadRequest,
			"week_offset must be zero or negative")
		return "", in, false
	}
	in.Now = s.now().In(loc)
	in.WeekOffset = offset
	return s.userParam(r), in, true
}

func (s *Server) handleFlowReport(
	w http.ResponseWriter, r *http.Request,
) {
	user, in, ok := s.flowParams(w, r)
	if !ok {
		return
	}
	report, err := flow.Run(
		r.Context(), sharedSource{s}, user, in.Now, in.WeekOffset,
	)
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	reportsComputed.WithLabelValues("all").Inc()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFlowMetric(
	w http.ResponseWriter, r *http.Request,
) {
	m, err := flow.ParseMetric(r.PathValue("metric"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	user, in, ok := s.flowParams(w, r)
	if !ok {
		return
	}

	in.Sessions, in.Tasks, err = sharedSource{s}.Snapshot(r.Context(), user)
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := flow.Evaluate(m, in)
	if errors.Is(err, flow.ErrUnknownMetric) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	reportsComputed.WithLabelValues(string(m)).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"metric":       m,
		"generated_at": in.Now,
		"result":       result,
	})
}
