package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS contact_runs (
	seq BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS contact_records (
	run_id TEXT NOT NULL REFERENCES contact_runs(run_id),
	position INTEGER NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, records []storage.Record) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	runID := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO contact_runs (run_id, created_at) VALUES ($1, $2)`,
		runID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{runID, i, r.Email, r.Phone}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"contact_records"},
		[]string{"run_id", "position", "email", "phone"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	query := `SELECT email, phone FROM contact_records
	WHERE run_id = (SELECT run_id FROM contact_runs ORDER BY seq DESC LIMIT 1)`
	args := []any{}
	paramCount := 1

	if filter.Email != "" {
		query += fmt.Sprintf(` AND strpos(email, $%d) > 0`, paramCount)
		args = append(args, filter.Email)
		paramCount++
	}
	if filter.Phone != "" {
		query += fmt.Sprintf(` AND strpos(phone, $%d) > 0`, paramCount)
		args = append(args, filter.Phone)
		paramCount++
	}

	query += ` ORDER BY position ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []storage.Record{}
	for rows.Next() {
		var r storage.Record
		if err := rows.Scan(&r.Email, &r.Phone); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
