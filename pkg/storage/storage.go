package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"darjacollect/pkg/collector"
)

// Storage archives collected batches in Postgres alongside the file-based
// persistence. The session treats archive failures as warnings, so nothing
// here may abort a collection run.
type Storage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New connects to the database and verifies the connection.
func New(dataSourceName string, logger *zap.Logger) (*Storage, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("Connected to archive database")
	return &Storage{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// ApplyMigrations applies the archive schema migrations.
func ApplyMigrations(databaseURL, migrationsPath string, logger *zap.Logger) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("Archive migrations applied")
	return nil
}

// ArchiveBatch stores every record of one saved batch, keyed by the batch
// file name. Records seen in an earlier run keep their original row.
func (s *Storage) ArchiveBatch(ctx context.Context, batchFile string, records []collector.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO collected_records (
		batch_file, source, record_id, text_raw, username,
		created_at_raw, collection_method, collection_timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (source, record_id) DO NOTHING;
	`
	for _, record := range records {
		if _, err := tx.ExecContext(ctx, query,
			batchFile,
			record.Source,
			record.ID,
			record.TextRaw,
			record.User,
			record.CreatedAtString(),
			record.CollectionMethod,
			record.CollectionTimestamp,
		); err != nil {
			return fmt.Errorf("failed to archive record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive batch: %w", err)
	}
	s.logger.Info("Archived batch",
		zap.String("batch", batchFile), zap.Int("records", len(records)))
	return nil
}
