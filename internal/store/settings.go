package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Settings is a snapshot of site_settings. It satisfies block.SiteConfig.
type Settings map[string]string

// Get returns the raw value for key.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Int returns the value for key parsed as an integer, or fallback.
func (s Settings) Int(key string, fallback int) int {
	v, ok := s[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// SettingsStore reads and writes site-wide settings.
type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load returns every setting.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	var rows []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, value FROM site_settings`); err != nil {
		return nil, err
	}
	out := make(Settings, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}

// Set writes value under name, inserting the row if needed.
func (s *SettingsStore) Set(ctx context.Context, name, value string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE site_settings SET value = ?, updated_at = ? WHERE name = ?`),
		value, now, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO site_settings (name, value, updated_at) VALUES (?, ?, ?)`),
		name, value, now)
	if isUniqueConstraintError(err) {
		// MySQL reports zero affected rows when the value is unchanged.
		return nil
	}
	return err
}
