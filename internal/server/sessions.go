package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/wesm/flowstate/internal/db"
	"github.com/wesm/flowstate/internal/flow"
	"github.com/wesm/flowstate/internal/ingest"
)

func (s *Server) handleListSessions(
	w http.ResponseWriter, r *http.Request,
) {
	q := r.URL.Query()

	limit, ok := parseIntParam(w, r, "limit")
	if !ok {
		return
	}
	limit = clampLimit(limit, db.DefaultSessionLimit, db.MaxSessionLimit)

	dateFrom := q.Get("date_from")
	dateTo := q.Get("date_to")
	for _, d := range []string{dateFrom, dateTo} {
		if d != "" && !isValidDate(d) {
			writeError(w, http.StatusBadRequest,
				"invalid date format: use YYYY-MM-DD")
			return
		}
	}
	if dateFrom != "" && dateTo != "" && dateFrom > dateTo {
		writeError(w, http.StatusBadRequest,
			"date_from must not be after date_to")
		return
	}

	page, err := s.db.ListSessions(r.Context(), db.SessionFilter{
		UserID:   s.userParam(r),
		TaskID:   q.Get("task_id"),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		if errors.Is(err, db.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetSession(
	w http.ResponseWriter, r *http.Request,
) {
	session, err := s.db.GetSession(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// createSessionRequest is the body of POST /api/v1/sessions.
// DurationSeconds defaults to the wall time minus breaks.
type createSessionRequest struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	StartedAt            time.Time `json:"started_at"`
	EndedAt              time.Time `json:"ended_at"`
	DurationSeconds      *int      `json:"duration_seconds"`
	BreakDurationSeconds int       `json:"break_duration_seconds"`
	TaskID               *string   `json:"task_id"`
}

func (req createSessionRequest) toFlow(defaultUser string) flow.Session {
	fs := flow.Session{
		ID:                   req.ID,
		UserID:               req.UserID,
		StartedAt:            req.StartedAt,
		EndedAt:              req.EndedAt,
		BreakDurationSeconds: req.BreakDurationSeconds,
		TaskID:               req.TaskID,
	}
	if fs.UserID == "" {
		fs.UserID = defaultUser
	}
	if req.DurationSeconds != nil {
		fs.DurationSeconds = *req.DurationSeconds
	} else {
		derived := int(req.EndedAt.Sub(req.StartedAt).Seconds()) -
			req.BreakDurationSeconds
		fs.DurationSeconds = max(derived, 0)
	}
	if fs.ID == "" {
		fs.ID = ingest.SessionID(fs.UserID, fs.StartedAt, fs.EndedAt)
	}
	return fs
}

func (s *Server) handleCreateSession(
	w http.ResponseWriter, r *http.Request,
) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fs := req.toFlow(s.cfg.DefaultUser)
	if err := db.ValidateSession(fs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row := db.FromFlow(fs)
	if err := s.db.UpsertSession(row); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stored, err := s.db.GetSession(r.Context(), row.ID)
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleDeleteSession(
	w http.ResponseWriter, r *http.Request,
) {
	err := s.db.DeleteSession(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
