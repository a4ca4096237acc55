// Package collector is the server side of exhaustion beacons: it ingests
// payloads posted by agents and persists them for later analysis.
package collector

import (
	"context"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/staleguard/internal/report"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBConfig holds PostgreSQL connection configuration.
type DBConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DB wraps the PostgreSQL connection.
type DB struct {
	*sqlx.DB
}

// NewDB creates a new database connection.
func NewDB(ctx context.Context, cfg DBConfig) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db.DB.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// Beacon is a stored exhaustion report.
type Beacon struct {
	ID           int64     `db:"id"`
	SessionID    string    `db:"session_id"`
	RetryID      string    `db:"retry_id"`
	FinalAttempt int       `db:"final_attempt"`
	Error        string    `db:"error"`
	OccurredAt   time.Time `db:"occurred_at"`
	ReceivedAt   time.Time `db:"received_at"`
}

// BeaconRepo persists beacons.
type BeaconRepo struct {
	db *DB
}

// NewBeaconRepo creates a beacon repository.
func NewBeaconRepo(db *DB) *BeaconRepo {
	return &BeaconRepo{db: db}
}

// Insert stores one incoming payload.
func (r *BeaconRepo) Insert(ctx context.Context, p report.Payload) error {
	occurred := time.UnixMilli(p.Timestamp).UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO beacons (session_id, retry_id, final_attempt, error, occurred_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.SessionID, p.RetryID, p.FinalAttempt, p.Error, occurred, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert beacon: %w", err)
	}
	return nil
}

// Recent returns the newest beacons, most recent first.
func (r *BeaconRepo) Recent(ctx context.Context, limit int) ([]Beacon, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Beacon
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, session_id, retry_id, final_attempt, error, occurred_at, received_at
		FROM beacons
		ORDER BY received_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query beacons: %w", err)
	}
	return out, nil
}
