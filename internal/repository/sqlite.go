package repository

import (
	"context"
	"strings"

	"bookathing/internal/database"
	"bookathing/internal/models"
)

const sqliteBackend = "sqlite"

// SQLiteStore keeps bookings in the local SQLite database.
type SQLiteStore struct {
	db *database.DB
}

func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]models.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.CalendarID != "" {
		where = append(where, "calendar_id = ?")
		args = append(args, f.CalendarID)
	}
	if f.Date != "" {
		where = append(where, "date = ?")
		args = append(args, f.Date)
	}

	query := `SELECT id, name, start_time, end_time, date, calendar_id, created_at FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(sqliteBackend, "list", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.StartTime, &b.EndTime, &b.Date, &b.CalendarID, &b.CreatedAt); err != nil {
			return nil, unavailable(sqliteBackend, "list", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(sqliteBackend, "list", err)
	}
	return bookings, nil
}

func (s *SQLiteStore) Create(ctx context.Context, b *models.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings (id, name, start_time, end_time, date, calendar_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.StartTime, b.EndTime, b.Date, b.CalendarID, b.CreatedAt.UTC(),
	)
	if err != nil {
		return unavailable(sqliteBackend, "create", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, calendarID, id string) error {
	query := `DELETE FROM bookings WHERE id = ?`
	args := []any{id}
	if calendarID != "" {
		query += ` AND calendar_id = ?`
		args = append(args, calendarID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable(sqliteBackend, "delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(sqliteBackend, "delete", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(sqliteBackend, "ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Name() string { return sqliteBackend }
