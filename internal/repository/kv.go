package repository

import "database/sql"

// KVStore is durable key-value storage backed by sqlite. The conversation
// store keeps its whole serialized session collection under one key here;
// each Set replaces the value in a single statement.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new key-value store
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for key and whether it exists
func (s *KVStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes the value for key, replacing any previous value
func (s *KVStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
