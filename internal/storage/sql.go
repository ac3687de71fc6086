package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLStore keeps values in the kv table. driverName is "sqlite" or "postgres".
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(driverName, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db}
	if err := s.runMigrations(driverName); err != nil {
		_ = db.Close()
		return nil, err
	}
	if driverName == "sqlite" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	return s, nil
}

func (s *SQLStore) runMigrations(driverName string) error {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case "sqlite":
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported sql driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query key: %w", err)
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert key: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
