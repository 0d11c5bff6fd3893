package database

import (
	"context"
	"fmt"

	"github.com/yourusername/bracket-forecast/internal/config"
)

// Schema creates the tables the feature store and artifact repository read
const Schema = `
CREATE TABLE IF NOT EXISTS teams (
	team_id   TEXT NOT NULL,
	season    INTEGER NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (team_id, season)
);

CREATE TABLE IF NOT EXISTS games (
	id            TEXT PRIMARY KEY,
	season        INTEGER NOT NULL,
	date          DATE NOT NULL,
	home_team_id  TEXT NOT NULL,
	away_team_id  TEXT NOT NULL,
	home_score    INTEGER NOT NULL,
	away_score    INTEGER NOT NULL,
	neutral       BOOLEAN NOT NULL DEFAULT FALSE,
	seq           BIGSERIAL
);
CREATE INDEX IF NOT EXISTS games_season_date_idx ON games (season, date, seq);

CREATE TABLE IF NOT EXISTS team_metrics (
	team_id    TEXT NOT NULL,
	season     INTEGER NOT NULL,
	asof_date  DATE NOT NULL,
	metric     TEXT NOT NULL,
	value      DOUBLE PRECISION,
	label      TEXT,
	PRIMARY KEY (team_id, season, asof_date, metric)
);

CREATE TABLE IF NOT EXISTS artifacts (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	cutoff      DATE NOT NULL,
	seasons     INTEGER[] NOT NULL,
	payload     JSONB NOT NULL,
	trained_at  TIMESTAMPTZ NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema creates any missing tables
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
