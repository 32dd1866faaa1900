package repository

import (
	"context"
	"fmt"
	"time"

	"bookathing/internal/models"

	"gorm.io/gorm"
)

const postgresBackend = "postgres"

type bookingRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Name       string    `gorm:"not null"`
	StartTime  string    `gorm:"size:5;not null"`
	EndTime    string    `gorm:"size:5;not null"`
	Date       string    `gorm:"size:10;not null;index:idx_bookings_partition,priority:2"`
	CalendarID string    `gorm:"size:64;not null;index:idx_bookings_partition,priority:1"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (bookingRecord) TableName() string { return "bookings" }

func toRecord(b *models.Booking) bookingRecord {
	return bookingRecord{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Date:       b.Date,
		CalendarID: b.CalendarID,
		CreatedAt:  b.CreatedAt,
	}
}

func (r bookingRecord) toModel() models.Booking {
	return models.Booking{
		ID:         r.ID,
		Name:       r.Name,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Date:       r.Date,
		CalendarID: r.CalendarID,
		CreatedAt:  r.CreatedAt,
	}
}

// GormStore keeps bookings in a relational table through GORM. In
// production it runs against the hosted Postgres database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the bookings table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&bookingRecord{}); err != nil {
		return nil, fmt.Errorf("migrate bookings: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) List(ctx context.Context, f Filter) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Model(&bookingRecord{})
	if f.CalendarID != "" {
		q = q.Where("calendar_id = ?", f.CalendarID)
	}
	if f.Date != "" {
		q = q.Where(`"date" = ?`, f.Date)
	}

	var records []bookingRecord
	if err := q.Order("created_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, unavailable(postgresBackend, "list", err)
	}

	bookings := make([]models.Booking, 0, len(records))
	for _, r := range records {
		bookings = append(bookings, r.toModel())
	}
	return bookings, nil
}

func (s *GormStore) Create(ctx context.Context, b *models.Booking) error {
	record := toRecord(b)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return unavailable(postgresBackend, "create", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, calendarID, id string) error {
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if calendarID != "" {
		q = q.Where("calendar_id = ?", calendarID)
	}

	res := q.Delete(&bookingRecord{})
	if res.Error != nil {
		return unavailable(postgresBackend, "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(postgresBackend, "ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable(postgresBackend, "ping", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Name() string { return postgresBackend }
