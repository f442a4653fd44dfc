package server

import (
	"net/http"

	"github.com/wesm/flowstate/internal/ingest"
	"github.com/wesm/flowstate/internal/timeutil"
)

// RecordImport adds an import run to the exported counters.
func RecordImport(stats ingest.Stats) {
	importedSessions.Add(float64(stats.Sessions))
	importFailures.Add(float64(stats.Failed))
}

func (s *Server) handleImport(
	w http.ResponseWriter, r *http.Request,
) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "import is not configured")
		return
	}
	stats := s.engine.ImportAll()
	RecordImport(stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportStatus(
	w http.ResponseWriter, r *http.Request,
) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "import is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dirs":     s.engine.Dirs(),
		"last_run": timeutil.Ptr(s.engine.LastRun()),
		"stats":    s.engine.LastStats(),
	})
}
