package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres stores documents as jsonb rows in a single documents table.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgres connects to databaseURL and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string, log *zap.Logger) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresFromPool(pool, log), nil
}

func NewPostgresFromPool(pool *pgxpool.Pool, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{pool: pool, log: log}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := p.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		p.log.Info("migration applied", zap.String("name", name))
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, path string, dst any) error {
	if _, _, err := splitDocument(path); err != nil {
		return err
	}

	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	return fromJSON(path, raw, dst)
}

func (p *Postgres) Set(ctx context.Context, path string, src any) error {
	collection, id, err := splitDocument(path)
	if err != nil {
		return err
	}
	raw, err := toJSON(path, src)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO documents (path, collection, id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (path) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
	`, path, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// List matches filters with jsonb containment, so values compare by JSON type.
func (p *Postgres) List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := toJSON(collection, filterDocument(filters))
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT path, id, data
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY path
	`, collection, string(want))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var raw []byte
		if err := rows.Scan(&s.Path, &s.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		s.Data = raw
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}
	return out, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
