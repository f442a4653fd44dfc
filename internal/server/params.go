package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wesm/flowstate/internal/config"
	"github.com/wesm/flowstate/internal/timeutil"
)

// parseIntParam parses an optional integer query parameter,
// writing a 400 and returning ok=false when it is malformed.
// Missing parameters yield 0.
func parseIntParam(
	w http.ResponseWriter, r *http.Request, name string,
) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+": must be an integer")
		return 0, false
	}
	return n, true
}

// clampLimit applies the default for zero and caps at max.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// isValidDate checks that s is a well-formed YYYY-MM-DD string.
func isValidDate(s string) bool {
	_, err := time.Parse(timeutil.DateLayout, s)
	return err == nil
}

// userParam returns the "user" query parameter, or the configured
// default user.
func (s *Server) userParam(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return s.cfg.DefaultUser
}

// locationParam resolves the "timezone" query parameter, falling
// back to the configured zone. ok is false for unknown zones.
func (s *Server) locationParam(
	w http.ResponseWriter, r *http.Request,
) (*time.Location, bool) {
	name := r.URL.Query().Get("timezone")
	if name == "" {
		return s.cfg.Location(), true
	}
	loc, err := config.LoadLocation(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone: "+name)
		return nil, false
	}
	return loc, true
}
