package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"bookathing/internal/calendar"
	"bookathing/internal/export"
	"bookathing/internal/metrics"
	"bookathing/internal/models"
	"bookathing/internal/repository"
	"bookathing/internal/service"
)

const maxBodyBytes = 1 << 20

// BookingsResponse is the body of GET /api/bookings.
type BookingsResponse struct {
	Bookings []models.Booking `json:"bookings"`
}

// BookingResponse is the body of a successful POST /api/bookings.
type BookingResponse struct {
	Booking models.Booking `json:"booking"`
}

// ValidationErrorResponse echoes the submitted fields back to the caller.
type ValidationErrorResponse struct {
	Error    string                 `json:"error"`
	Missing  []string               `json:"missing,omitempty"`
	Received *service.CreateRequest `json:"received,omitempty"`
}

// handleListBookings returns bookings, optionally for one date.
// GET /api/bookings?date=YYYY-MM-DD&calendar=ID
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_list")

	q := r.URL.Query()
	bookings, err := s.bookings.List(r.Context(), q.Get("calendar"), q.Get("date"))
	if err != nil {
		s.writeServiceError(w, err, nil, "Failed to get bookings")
		return
	}
	writeJSON(w, http.StatusOK, BookingsResponse{Bookings: bookings})
}

// handleCreateBooking stores a new booking.
// POST /api/bookings?calendar=ID
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")

	var req service.CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if cal := r.URL.Query().Get("calendar"); cal != "" {
		req.CalendarID = cal
	}

	booking, err := s.bookings.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, &req, "Failed to create booking")
		return
	}
	writeJSON(w, http.StatusCreated, BookingResponse{Booking: *booking})
}

// handleDeleteBooking removes a booking by id.
// DELETE /api/bookings/{id}?calendar=ID
func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_delete")

	if err := s.bookings.Delete(r.Context(), r.URL.Query().Get("calendar"), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err, nil, "Failed to delete booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleExportBookings streams the selected bookings as an xlsx workbook.
// GET /api/bookings/export?date=YYYY-MM-DD&calendar=ID
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_export")

	q := r.URL.Query()
	date := q.Get("date")
	bookings, err := s.bookings.List(r.Context(), q.Get("calendar"), date)
	if err != nil {
		s.writeServiceError(w, err, nil, "Failed to export bookings")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDay(&buf, date, bookings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render export")
		writeError(w, http.StatusInternalServerError, "Failed to export bookings")
		return
	}

	name := "bookings.xlsx"
	if date != "" {
		name = fmt.Sprintf("bookings-%s.xlsx", date)
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeServiceError maps service and store errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error, received *service.CreateRequest, fallbackMsg string) {
	var (
		verr *service.ValidationError
		oerr *calendar.OverlapError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:    verr.Message,
			Missing:  verr.Missing,
			Received: received,
		})
	case errors.Is(err, service.ErrCalendarNotFound):
		writeError(w, http.StatusNotFound, "Calendar not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Booking not found")
	case errors.As(err, &oerr):
		writeError(w, http.StatusConflict, oerr.Error())
	case errors.Is(err, repository.ErrBackendUnavailable):
		s.logger.Error().Err(err).Msg("Storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
	default:
		s.logger.Error().Err(err).Msg(fallbackMsg)
		writeError(w, http.StatusInternalServerError, fallbackMsg)
	}
}
