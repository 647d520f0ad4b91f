// ABOUTME: storage.Backend implementation over the SQLite kv table
// ABOUTME: Each namespace is a partition of rows sharing the namespace column
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/harper/datachat/internal/storage"
)

// Open returns the store for namespace
func (db *DB) Open(namespace string) (storage.Store, error) {
	return &kvStore{db: db, namespace: storage.NamespaceFor(namespace)}, nil
}

// Namespaces lists namespaces that hold at least one key
func (db *DB) Namespaces() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT namespace FROM kv ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

type kvStore struct {
	db        *DB
	namespace string
}

func (s *kvStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.conn.QueryRow(
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

func (s *kvStore) Set(key string, value []byte) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) Keys() ([]string, error) {
	rows, err := s.db.conn.Query(`SELECT key FROM kv WHERE namespace = ? ORDER BY key`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *kvStore) Clear() error {
	if _, err := s.db.conn.Exec(`DELETE FROM kv WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", s.namespace, err)
	}
	return nil
}
