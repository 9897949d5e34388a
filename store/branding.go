package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lvillar/psyreport/branding"
)

// SaveBranding replaces the branding configuration of owner.
func (s *Store) SaveBranding(ctx context.Context, owner string, cfg branding.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("store: encoding branding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO branding (owner_id, config, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		owner, string(data), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: saving branding: %w", err)
	}
	return nil
}

// LoadBranding returns the branding configuration of owner; the zero Config
// when none was saved.
func (s *Store) LoadBranding(ctx context.Context, owner string) (branding.Config, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT config FROM branding WHERE owner_id = ?", owner).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return branding.Config{}, nil
	}
	if err != nil {
		return branding.Config{}, fmt.Errorf("store: loading branding: %w", err)
	}

	var cfg branding.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return branding.Config{}, fmt.Errorf("store: decoding branding: %w", err)
	}
	return cfg, nil
}

// UpdateBranding loads, modifies and saves the configuration of owner in one
// transaction.
func (s *Store) UpdateBranding(ctx context.Context, owner string, fn func(*branding.Config)) (branding.Config, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return branding.Config{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var cfg branding.Config
	var data string
	err = tx.QueryRowContext(ctx, "SELECT config FROM branding WHERE owner_id = ?", owner).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return branding.Config{}, fmt.Errorf("store: loading branding: %w", err)
	default:
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return branding.Config{}, fmt.Errorf("store: decoding branding: %w", err)
		}
	}

	fn(&cfg)
	out, err := json.Marshal(cfg)
	if err != nil {
		return branding.Config{}, fmt.Errorf("store: encoding branding: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO branding (owner_id, config, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		owner, string(out), s.now().UTC(),
	)
	if err != nil {
		return branding.Config{}, fmt.Errorf("store: saving branding: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return branding.Config{}, fmt.Errorf("store: commit: %w", err)
	}
	return cfg, nil
}
