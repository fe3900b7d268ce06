package repository

import (
	"database/sql"
	"time"
)

// CredentialRepository is a small key/value store for login state
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the value stored under key, or "" when there is none
func (r *CredentialRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set stores value under key, replacing any previous value
func (r *CredentialRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (r *CredentialRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM credentials WHERE key = ?`, key)
	return err
}
