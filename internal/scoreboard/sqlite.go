package scoreboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore persists the match table and the per-day match log.
// The matches table is rewritten wholesale at shutdown and read back at
// startup; match_log accumulates one lifecycle row per match, keyed by
// the match's start date so a day's matches can be listed together.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the schema and returns the store.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			static   TEXT NOT NULL,
			dynamic  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS match_log (
			match_id   TEXT PRIMARY KEY,
			start_date TEXT NOT NULL,
			started_at TEXT,
			ended_at   TEXT,
			expired    INTEGER NOT NULL DEFAULT 0,
			team_a     TEXT NOT NULL,
			team_b     TEXT NOT NULL,
			location   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_log_start_date ON match_log (start_date)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// SaveMatches replaces the persisted match table with recs.
func (s *SQLiteStore) SaveMatches(ctx context.Context, recs []MatchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("clearing matches: %w", err)
	}

	for _, rec := range recs {
		static, err := json.Marshal(rec.Static)
		if err != nil {
			return fmt.Errorf("marshaling match %s: %w", rec.MatchID, err)
		}
		dynamic, err := json.Marshal(rec.State)
		if err != nil {
			return fmt.Errorf("marshaling match %s: %w", rec.MatchID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO matches (match_id, static, dynamic)
			VALUES (?, ?, ?)
		`, rec.MatchID, string(static), string(dynamic))
		if err != nil {
			return fmt.Errorf("inserting match %s: %w", rec.MatchID, err)
		}
	}

	return tx.Commit()
}

// LoadMatches reads back every persisted match. Rows that fail to parse
// are skipped rather than failing the whole load.
func (s *SQLiteStore) LoadMatches(ctx context.Context) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_id, static, dynamic FROM matches`)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var recs []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var static, dynamic string
		if err := rows.Scan(&rec.MatchID, &static, &dynamic); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		if err := json.Unmarshal([]byte(static), &rec.Static); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(dynamic), &rec.State); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LogMatchStart records a new match in the day's log.
func (s *SQLiteStore) LogMatchStart(ctx context.Context, matchID string, static MatchStatic) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_log (match_id, start_date, started_at, team_a, team_b, location)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO NOTHING
	`, matchID, static.StartDate, now.Format(time.RFC3339), static.A.Name, static.B.Name, static.Location)
	if err != nil {
		return fmt.Errorf("logging match start: %w", err)
	}
	return nil
}

// LogMatchEnd closes out a match's log row. expired marks matches that
// were swept idle instead of ended by the admin.
func (s *SQLiteStore) LogMatchEnd(ctx context.Context, matchID string, expired bool) error {
	expiredInt := 0
	if expired {
		expiredInt = 1
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE match_log SET ended_at = ?, expired = ? WHERE match_id = ?
	`, now.Format(time.RFC3339), expiredInt, matchID)
	if err != nil {
		return fmt.Errorf("logging match end: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("match %s has no log row", matchID)
	}
	return nil
}
