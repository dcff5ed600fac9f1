package analytics

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists visits in SQLite.
type Store struct {
	db   *sql.DB
	salt string
}

// NewStore opens (or creates) the analytics database at path and loads the
// per-installation hashing salt, generating it on first use.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.loadSalt(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Salt returns the hashing salt for IPs and visitor ids.
func (s *Store) Salt() string {
	return s.salt
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			screen_size TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
		CREATE INDEX IF NOT EXISTS idx_visits_ts ON visits(ts);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_ts ON bot_visits(ts);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

func (s *Store) loadSalt(ctx context.Context) error {
	v, err := s.GetSetting(ctx, "hash_salt")
	if err != nil {
		return fmt.Errorf("read hash salt: %w", err)
	}
	if v == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		v = hex.EncodeToString(b)
		if err := s.SetSetting(ctx, "hash_salt", v); err != nil {
			return fmt.Errorf("store hash salt: %w", err)
		}
	}
	s.salt = v
	return nil
}

// GetSetting returns the value stored under key, or "" if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit records a human page view.
func (s *Store) SaveVisit(ctx context.Context, v Visit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO visits
		(visitor_id, ip_hash, browser, device, path, referrer, screen_size, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.Device, v.Path, v.Referrer, v.ScreenSize, v.Timestamp.UTC().Unix())
	return err
}

// SaveBotVisit records a crawler page view.
func (s *Store) SaveBotVisit(ctx context.Context, b BotVisit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, ts)
		VALUES (?, ?, ?, ?, ?)`,
		b.BotName, b.IPHash, b.UserAgent, b.Path, b.Timestamp.UTC().Unix())
	return err
}

// CountViews returns the number of human visits to any of paths.
func (s *Store) CountViews(ctx context.Context, paths ...string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}
	query := `SELECT COUNT(*) FROM visits WHERE path IN (?` + strings.Repeat(", ?", len(paths)-1) + `)`
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// TopPages returns the most viewed paths starting with prefix.
func (s *Store) TopPages(ctx context.Context, prefix string, limit int) ([]PageStat, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path, COUNT(*) AS views FROM visits
		WHERE substr(path, 1, length(?)) = ?
		GROUP BY path ORDER BY views DESC, path ASC LIMIT ?`, prefix, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []PageStat{}
	for rows.Next() {
		var ps PageStat
		if err := rows.Scan(&ps.Path, &ps.Views); err != nil {
			return nil, err
		}
		stats = append(stats, ps)
	}
	return stats, rows.Err()
}

// DeleteBefore removes visits and bot visits older than t.
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	cutoff := t.UTC().Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	res, err = s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE ts < ?`, cutoff)
	if err != nil {
		return n, err
	}
	m, _ := res.RowsAffected()
	return n + m, nil
}

// StartCleanupScheduler deletes visits older than retentionDays every
// interval until the returned stop function is called.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				n, err := s.DeleteBefore(context.Background(), now.AddDate(0, 0, -retentionDays))
				if err != nil {
					slog.Error("analytics cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("analytics cleanup", "deleted", n)
				}
			}
		}
	}()
	return func() { close(done) }
}
