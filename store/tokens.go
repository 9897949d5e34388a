package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTokenInvalid is returned when a refresh token is unknown, already used
// or expired.
var ErrTokenInvalid = errors.New("store: token invalid")

// StoreToken records a refresh token pair issued to email.
func (s *Store) StoreToken(ctx context.Context, email, tokenID, refreshTokenID string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO token (email, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		NormalizeEmail(email),
		tokenID,
		refreshTokenID,
		s.now().UTC().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("store: inserting token: %w", err)
	}
	return nil
}

// ConsumeToken deletes the token pair and reports whether it was still
// valid. A token can be consumed once.
func (s *Store) ConsumeToken(ctx context.Context, email, tokenID, refreshTokenID string) error {
	var expiration time.Time
	var ok bool

	s.db.
		QueryRowContext(ctx, `
			DELETE FROM token
			WHERE email = ?
				AND token_id = ?
				AND refresh_token_id = ?
			RETURNING expiration, 1`,
			NormalizeEmail(email),
			tokenID,
			refreshTokenID,
		).
		Scan(&expiration, &ok)
	if !ok {
		return ErrTokenInvalid
	}

	if expiration.Before(s.now()) {
		return ErrTokenInvalid
	}
	return nil
}

// PurgeTokens removes expired tokens and returns how many were removed.
func (s *Store) PurgeTokens(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM token WHERE expiration < ?", s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("store: purging tokens: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
