package api

import (
	"context"
	"net/http"
	"time"

	"bookathing/internal/config"
	"bookathing/internal/metrics"
)

// CalendarsResponse is the body of GET /api/calendars.
type CalendarsResponse struct {
	Calendars []config.CalendarConfig `json:"calendars"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
	Bookings int    `json:"bookings"`
}

// handleListCalendars returns the configured calendars.
// GET /api/calendars
func (s *HTTPServer) handleListCalendars(w http.ResponseWriter, _ *http.Request) {
	metrics.IncHTTP("calendars")

	resp := CalendarsResponse{Calendars: []config.CalendarConfig{}}
	if s.calendars != nil {
		if list := s.calendars.List(); len(list) > 0 {
			resp.Calendars = list
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/ping
func (s *HTTPServer) handlePing(w http.ResponseWriter, _ *http.Request) {
	metrics.IncHTTP("ping")
	writeJSON(w, http.StatusOK, map[string]string{"message": s.pingMessage})
}

// handleHealth reports store status. The endpoint stays 200 while degraded
// because bookings are still served from the fallback.
// GET /api/health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Backend:  s.bookings.StoreName(),
		Degraded: s.bookings.Degraded(),
	}

	bookings, err := s.bookings.List(ctx, "", "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Health check failed to list bookings")
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Bookings = len(bookings)
	writeJSON(w, http.StatusOK, resp)
}
