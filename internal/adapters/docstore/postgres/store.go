// Package postgres implements docstore.Store on a single JSONB table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/ficmart-transaction-core/db/migrations"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect establishes a connection pool and verifies connectivity.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	pgxCfg, err := cfg.PgxConfig()
	if err != nil {
		logger.Error("failed to build pgx config", "error", err)
		return nil, err
	}

	logger.Info("connecting to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		logger.Error("failed to create connection pool", "error", err)
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		pool.Close()
		return nil, err
	}

	logger.Info("successfully connected to database",
		"max_conns", pgxCfg.MaxConns,
		"min_conns", pgxCfg.MinConns,
	)

	return New(pool, logger), nil
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{Pool: pool, logger: logger}
}

// EnsureSchema applies the documents migration. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, migrations.DocumentsUp); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) Close() {
	s.logger.Info("closing database connection pool")
	s.Pool.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, classify("get", err)
	}

	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, docstore.NewError("get", docstore.CodeInternal, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return docstore.NewError("set", docstore.CodeInvalidArgument, err)
	}

	query := `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.Pool.Exec(ctx, query, collection, id, raw); err != nil {
		return classify("set", err)
	}
	return nil
}

// SetIf is a single conditional UPDATE, so the check and the write are atomic.
func (s *Store) SetIf(ctx context.Context, collection, id string, doc docstore.Document, expect docstore.Filter) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return docstore.NewError("set_if", docstore.CodeInvalidArgument, err)
	}
	match, err := json.Marshal(map[string]any{expect.Field: expect.Value})
	if err != nil {
		return docstore.NewError("set_if", docstore.CodeInvalidArgument, err)
	}

	query := `
		UPDATE documents
		SET data = $3, updated_at = now()
		WHERE collection = $1 AND id = $2 AND data @> $4::jsonb
	`
	tag, err := s.Pool.Exec(ctx, query, collection, id, raw, match)
	if err != nil {
		return classify("set_if", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrPreconditionFailed
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, docstore.NewError("query", docstore.CodeInvalidArgument, err)
	}

	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	var out []docstore.Snapshot
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("query", err)
		}
		var doc docstore.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, docstore.NewError("query", docstore.CodeInternal, err)
		}
		out = append(out, docstore.Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", err)
	}
	return out, nil
}

// buildQuery turns equality filters into one JSONB containment predicate.
func buildQuery(collection string, q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	if len(q.Filters) > 0 {
		match := make(map[string]any, len(q.Filters))
		for _, f := range q.Filters {
			match[f.Field] = f.Value
		}
		raw, err := json.Marshal(match)
		if err != nil {
			return "", nil, err
		}
		args = append(args, raw)
		fmt.Fprintf(&b, ` AND data @> $%d::jsonb`, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY data->>$%d %s, id`, len(args), dir)
	} else {
		b.WriteString(` ORDER BY id`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}
	return b.String(), args, nil
}
