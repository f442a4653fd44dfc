package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wesm/flowstate/internal/db"
)

func (s *Server) handleListTasks(
	w http.ResponseWriter, r *http.Request,
) {
	tasks, err := s.db.ListTasks(r.Context(), s.userParam(r))
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

type createTaskRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

func (s *Server) handleCreateTask(
	w http.ResponseWriter, r *http.Request,
) {
	var req createTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := db.Task{
		ID:     strings.TrimSpace(req.ID),
		UserID: req.UserID,
		Title:  strings.TrimSpace(req.Title),
	}
	if t.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if t.UserID == "" {
		t.UserID = s.cfg.DefaultUser
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.db.UpsertTask(t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stored, err := s.db.GetTask(r.Context(), t.ID)
	if err != nil {
		if handleContextError(r, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
