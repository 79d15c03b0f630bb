// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS llmchat_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresPersister keeps the history in one row of llmchat_kv.
type PostgresPersister struct {
	db  *pgxpool.Pool
	key string
}

// OpenPostgres connects to url and creates the table if needed.
func OpenPostgres(ctx context.Context, url string) (*PostgresPersister, error) {
	if url == "" {
		return nil, errors.New("postgres backend requires a connection URL")
	}
	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres create schema: %w", err)
	}
	return &PostgresPersister{db: db, key: HistoryKey}, nil
}

// Load returns the stored blob, or nil if the row is absent.
func (p *PostgresPersister) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM llmchat_kv WHERE key = $1`, p.key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load: %w", err)
	}
	return data, nil
}

// Save upserts the blob.
func (p *PostgresPersister) Save(ctx context.Context, data []byte) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO llmchat_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		p.key, data,
	)
	if err != nil {
		return fmt.Errorf("postgres save: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresPersister) Close() error {
	p.db.Close()
	return nil
}

// drop removes the row; used by tests against a shared database.
func (p *PostgresPersister) drop(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `DELETE FROM llmchat_kv WHERE key = $1`, p.key)
	return err
}
