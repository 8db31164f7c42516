package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
)

// AuthTokenKey is the local key holding the API bearer token.
const AuthTokenKey = "auth_token"

// LocalStore is the CLI's client-side key/value store. It holds the wizard
// snapshot (wizard.Persister) and the bearer token (apiclient.TokenStore).
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens the local database at dsn.
func NewLocalStore(dsn string) (*LocalStore, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return &LocalStore{db: db}, nil
}

const localMigration = `
CREATE TABLE IF NOT EXISTS local_kv (
	namespace  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *LocalStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, localMigration)
	return eris.Wrap(err, "sqlite: migrate local")
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// SaveState replaces the blob stored under namespace.
func (s *LocalStore) SaveState(ctx context.Context, namespace string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_kv (namespace, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save %s", namespace)
}

// LoadState returns the blob stored under namespace, or nil if there is none.
func (s *LocalStore) LoadState(ctx context.Context, namespace string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_kv WHERE namespace = ?`, namespace).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load %s", namespace)
	}
	return data, nil
}

// DeleteState removes namespace.
func (s *LocalStore) DeleteState(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_kv WHERE namespace = ?`, namespace)
	return eris.Wrapf(err, "sqlite: delete %s", namespace)
}

// Token returns the stored bearer token ("" when logged out).
func (s *LocalStore) Token(ctx context.Context) (string, error) {
	data, err := s.LoadState(ctx, AuthTokenKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetToken stores the bearer token.
func (s *LocalStore) SetToken(ctx context.Context, token string) error {
	return s.SaveState(ctx, AuthTokenKey, []byte(token))
}

// ClearToken forgets the bearer token.
func (s *LocalStore) ClearToken(ctx context.Context) error {
	return s.DeleteState(ctx, AuthTokenKey)
}
