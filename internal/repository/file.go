package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"bookathing/internal/models"
)

const fileBackend = "file"

// FileStore keeps bookings as a pretty-printed JSON array in a single file.
// Every mutation rewrites the file through a temporary file and rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the JSON file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) List(_ context.Context, f Filter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.load()
	if err != nil {
		return nil, unavailable(fileBackend, "list", err)
	}
	return filterBookings(bookings, f), nil
}

func (s *FileStore) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.load()
	if err != nil {
		return unavailable(fileBackend, "create", err)
	}
	bookings = append(bookings, *b)
	if err := s.save(bookings); err != nil {
		return unavailable(fileBackend, "create", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, calendarID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.load()
	if err != nil {
		return unavailable(fileBackend, "delete", err)
	}
	idx := indexOf(bookings, calendarID, id)
	if idx < 0 {
		return ErrNotFound
	}
	bookings = append(bookings[:idx], bookings[idx+1:]...)
	if err := s.save(bookings); err != nil {
		return unavailable(fileBackend, "delete", err)
	}
	return nil
}

func (s *FileStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(); err != nil {
		return unavailable(fileBackend, "ping", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Name() string { return fileBackend }

// load returns an empty list when the file does not exist yet.
func (s *FileStore) load() ([]models.Booking, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Booking{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []models.Booking{}, nil
	}

	var bookings []models.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return bookings, nil
}

func (s *FileStore) save(bookings []models.Booking) error {
	data, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bookings-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
