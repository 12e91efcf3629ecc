package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MySQL keeps every key as a row of the kv_store table. It exists for
// deployments that already run MySQL and would rather not add Redis.
type MySQL struct {
	db *sql.DB
}

// NewMySQL wraps an open database handle.
func NewMySQL(db *sql.DB) *MySQL { return &MySQL{db: db} }

const createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
  k VARCHAR(191) NOT NULL PRIMARY KEY,
  v LONGBLOB NOT NULL,
  expires_at DATETIME NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const upsertKV = `INSERT INTO kv_store (k, v, expires_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v), expires_at = VALUES(expires_at)`

// Migrate creates the kv_store table when it is missing.
func (m *MySQL) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

func (m *MySQL) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := m.db.QueryRowContext(ctx,
		"SELECT v FROM kv_store WHERE k = ? AND (expires_at IS NULL OR expires_at > UTC_TIMESTAMP()) LIMIT 1",
		key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql get %s: %w", key, err)
	}
	return v, nil
}

func (m *MySQL) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := m.db.QueryContext(ctx,
		"SELECT k, v FROM kv_store WHERE k IN ("+placeholders+") AND (expires_at IS NULL OR expires_at > UTC_TIMESTAMP())",
		args...)
	if err != nil {
		return nil, fmt.Errorf("mysql mget: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("mysql mget scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (m *MySQL) SetMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, upsertKV, k, v, nil); err != nil {
			return fmt.Errorf("mysql set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql commit: %w", err)
	}
	committed = true
	return nil
}

func (m *MySQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var exp interface{}
	if ttl > 0 {
		exp = time.Now().UTC().Add(ttl)
	}
	if _, err := m.db.ExecContext(ctx, upsertKV, key, value, exp); err != nil {
		return fmt.Errorf("mysql set %s: %w", key, err)
	}
	return nil
}

func (m *MySQL) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM kv_store WHERE k = ?", key); err != nil {
		return fmt.Errorf("mysql del %s: %w", key, err)
	}
	return nil
}
