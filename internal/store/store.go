// Package store owns the Postgres connection pool of the catalog service and checks
// that the catalog schema is in place before the service starts serving.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaMissing means the database is reachable but the catalog tables are not;
// the migrations under db/migrations have not been applied.
var ErrSchemaMissing = errors.New("store: catalog schema missing")

// catalogTables are the relations the repositories read and write.
var catalogTables = []string{"movies", "comments"}

// Options tunes the pool. Zero values keep pgx defaults.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *slog.Logger
}

// Store owns the Postgres pool backing the catalog service.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	opts   Options
}

// Counts is the size of the catalog.
type Counts struct {
	Movies   int64
	Comments int64
}

// New connects, verifies the catalog schema and logs the catalog size. A database
// without the schema yields ErrSchemaMissing.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}

	connCtx, cancel := withTimeout(ctx, opts.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool, logger: logger, opts: opts}

	if err := s.verifySchema(connCtx); err != nil {
		pool.Close()
		return nil, err
	}

	counts, err := s.Counts(connCtx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("catalog database ready",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
		"movies", counts.Movies,
		"comments", counts.Comments)
	return s, nil
}

func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}
	return cfg, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// verifySchema reports which catalog tables are absent. The query doubles as a
// connectivity check.
func (s *Store) verifySchema(ctx context.Context) error {
	var missing []string
	for _, table := range catalogTables {
		var present bool
		if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&present); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !present {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Counts returns how many movies and comments the catalog holds.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM movies), (SELECT COUNT(*) FROM comments)`).
		Scan(&c.Movies, &c.Comments)
	if err != nil {
		return Counts{}, fmt.Errorf("count catalog: %w", err)
	}
	return c, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Info("closing connection pool")
	s.pool.Close()
}

// HealthCheck verifies the database answers and still carries the catalog schema.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("store not initialized")
	}
	checkCtx, cancel := withTimeout(ctx, s.opts.ConnTimeout)
	defer cancel()
	return s.verifySchema(checkCtx)
}

// Pool exposes the underlying pgx pool for repositories.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// LogStats writes the pool counters at debug level.
func (s *Store) LogStats() {
	if s == nil || s.pool == nil {
		return
	}
	st := s.pool.Stat()
	s.logger.Debug("pool stats",
		"total", st.TotalConns(),
		"idle", st.IdleConns(),
		"acquired", st.AcquiredConns(),
		"acquire_count", st.AcquireCount())
}
