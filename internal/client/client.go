// Package client talks to the booking API and keeps a per-day cache of
// bookings for interactive frontends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookathing/internal/models"
)

// ErrNotFound matches an *APIError with status 404.
var ErrNotFound = errors.New("not found")

// NetworkError is a transport failure: the server could not be reached or
// its reply could not be read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Missing    []string
}

func (e *APIError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.StatusCode, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	Name       string `json:"name"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Date       string `json:"date"`
	CalendarID string `json:"calendarId,omitempty"`
}

type Calendar struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type Health struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`
	Bookings int    `json:"bookings"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient builds a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListBookings fetches bookings for a calendar and date. Empty arguments
// are omitted from the query.
func (c *Client) ListBookings(ctx context.Context, calendarID, date string) ([]models.Booking, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if calendarID != "" {
		q.Set("calendar", calendarID)
	}

	var resp struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := c.do(ctx, "list bookings", http.MethodGet, c.endpoint("/bookings", q), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Bookings == nil {
		resp.Bookings = []models.Booking{}
	}
	return resp.Bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	var resp struct {
		Booking models.Booking `json:"booking"`
	}
	if err := c.do(ctx, "create booking", http.MethodPost, c.endpoint("/bookings", nil), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Booking, nil
}

func (c *Client) DeleteBooking(ctx context.Context, calendarID, id string) error {
	q := url.Values{}
	if calendarID != "" {
		q.Set("calendar", calendarID)
	}
	return c.do(ctx, "delete booking", http.MethodDelete, c.endpoint("/bookings/"+url.PathEscape(id), q), nil, nil)
}

func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var resp struct {
		Calendars []Calendar `json:"calendars"`
	}
	if err := c.do(ctx, "list calendars", http.MethodGet, c.endpoint("/calendars", nil), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Calendars, nil
}

func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "health check", http.MethodGet, c.endpoint("/health", nil), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error   string   `json:"error"`
			Missing []string `json:"missing"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Missing = payload.Missing
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
