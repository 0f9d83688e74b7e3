package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AnonymousAuthenticator opens an anonymous session for an application.
type AnonymousAuthenticator interface {
	SignIn(ctx context.Context, appID string) (string, error)
}

// SessionStore opens anonymous sessions as rows in the sessions table.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates an AnonymousAuthenticator backed by db.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) SignIn(ctx context.Context, appID string) (string, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(
		ctx,
		"INSERT INTO sessions(app_id, method) VALUES ($1, $2) RETURNING id",
		appID, string(MethodAnonymous),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id.String(), nil
}
