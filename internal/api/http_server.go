// Package api serves the booking REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bookathing/internal/config"
	"bookathing/internal/ratelimit"
	"bookathing/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// CalendarLister lists the calendars clients may select.
type CalendarLister interface {
	List() []config.CalendarConfig
}

type Options struct {
	Address        string
	ReadTimeout    time.Duration
	AllowedOrigins []string
	PingMessage    string
	Calendars      CalendarLister
	// Limiter throttles POST and DELETE requests when set.
	Limiter ratelimit.Limiter
}

type HTTPServer struct {
	server      *http.Server
	bookings    *service.BookingService
	calendars   CalendarLister
	limiter     ratelimit.Limiter
	pingMessage string
	logger      *zerolog.Logger
}

func NewHTTPServer(bookings *service.BookingService, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		bookings:    bookings,
		calendars:   opts.Calendars,
		limiter:     opts.Limiter,
		pingMessage: opts.PingMessage,
		logger:      logger,
	}
	if s.pingMessage == "" {
		s.pingMessage = "ping"
	}

	mux := http.NewServeMux()
	s.routes(mux)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           s.logRequests(c.Handler(mux)),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      2 * readTimeout,
	}
	return s
}

// routes registers every endpoint with and without the /api prefix.
func (s *HTTPServer) routes(mux *http.ServeMux) {
	handle := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" /api"+path, h)
		mux.HandleFunc(method+" "+path, h)
	}

	handle(http.MethodGet, "/bookings", s.handleListBookings)
	handle(http.MethodPost, "/bookings", s.limit(s.handleCreateBooking))
	handle(http.MethodDelete, "/bookings/{id}", s.limit(s.handleDeleteBooking))
	handle(http.MethodGet, "/bookings/export", s.handleExportBookings)
	handle(http.MethodGet, "/calendars", s.handleListCalendars)
	handle(http.MethodGet, "/ping", s.handlePing)
	handle(http.MethodGet, "/health", s.handleHealth)
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
