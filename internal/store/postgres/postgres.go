// Package postgres is the PostgreSQL prediction store.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/healthpredict/internal/risk"
	"github.com/Skufu/healthpredict/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const maxList = 500

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open applies pending migrations and connects a pool.
func Open(ctx context.Context, url string) (*Store, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func newMigrator(url string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("postgres: create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every embedded migration not yet recorded.
func RunMigrations(url string) error {
	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: run migrations up: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, p store.Prediction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO predictions (id, model, kind, label, probability, severity, row_count, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Model, p.Kind, p.Label, p.Probability, p.Severity.Tier(), p.Rows, []byte(p.Inputs), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]store.Prediction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, model, kind, label, probability, severity, row_count, inputs, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1`, store.Limit(limit, maxList))
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []store.Prediction
	for rows.Next() {
		var (
			p        store.Prediction
			id       string
			severity string
			inputs   []byte
		)
		if err := rows.Scan(&id, &p.Model, &p.Kind, &p.Label, &p.Probability, &severity, &p.Rows, &inputs, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if p.Severity, err = risk.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Inputs = inputs
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
