package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookathing/internal/config"

	"github.com/rs/zerolog"
)

// BackupService periodically copies the local bookings file (JSON or SQLite).
type BackupService struct {
	sourcePath string
	config     config.BackupConfig
	logger     *zerolog.Logger
	now        func() time.Time
	sqlite     bool
}

type BackupOption func(*BackupService)

// WithSQLiteSource snapshots the source through SQLite so that commits
// still in the WAL file are included.
func WithSQLiteSource() BackupOption {
	return func(s *BackupService) { s.sqlite = true }
}

func NewBackupService(sourcePath string, cfg config.BackupConfig, logger *zerolog.Logger, opts ...BackupOption) *BackupService {
	s := &BackupService{
		sourcePath: sourcePath,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a backup immediately and then every IntervalHours until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled || s.sourcePath == "" {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval := time.Duration(s.config.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("source", s.sourcePath).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup copies the source file into the backup directory and returns the new path.
// A missing source file (nothing written yet) is not an error.
func (s *BackupService) PerformBackup() (string, error) {
	if _, err := os.Stat(s.sourcePath); os.IsNotExist(err) {
		s.logger.Debug().Str("source", s.sourcePath).Msg("Nothing to back up yet")
		return "", nil
	} else if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(s.sourcePath)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), s.now().Format("20060102_150405"), ext)
	backupPath := filepath.Join(s.config.Path, name)

	s.logger.Info().Str("path", backupPath).Bool("sqlite", s.sqlite).Msg("Performing backup")

	var err error
	if s.sqlite {
		err = snapshotSQLite(s.sourcePath, backupPath)
	} else {
		err = copyFile(s.sourcePath, backupPath)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

// snapshotSQLite writes a consistent copy of the database, WAL included.
func snapshotSQLite(sourcePath, backupPath string) error {
	db, err := sql.Open("sqlite3", sourcePath+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database for backup: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		return fmt.Errorf("vacuum into %s: %w", backupPath, err)
	}
	return nil
}

func copyFile(sourcePath, backupPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}

// CleanupOldBackups removes backups older than RetentionDays.
func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.Path, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
			}
		}
	}
}
