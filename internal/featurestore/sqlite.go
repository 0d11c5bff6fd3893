package featurestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourusername/bracket-forecast/internal/models"
)

const sqliteDateLayout = "2006-01-02"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		team_id TEXT    NOT NULL,
		season  INTEGER NOT NULL,
		name    TEXT    NOT NULL,
		PRIMARY KEY (team_id, season)
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT    NOT NULL UNIQUE,
		season       INTEGER NOT NULL,
		date         TEXT    NOT NULL,
		home_team_id TEXT    NOT NULL,
		away_team_id TEXT    NOT NULL,
		home_score   INTEGER NOT NULL,
		away_score   INTEGER NOT NULL,
		neutral      INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS team_metrics (
		team_id   TEXT    NOT NULL,
		season    INTEGER NOT NULL,
		asof_date TEXT    NOT NULL,
		metric    TEXT    NOT NULL,
		value     REAL,
		label     TEXT,
		PRIMARY KEY (team_id, season, asof_date, metric)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_season_date ON games(season, date)`,
	`CREATE INDEX IF NOT EXISTS idx_games_home_team ON games(home_team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_away_team ON games(away_team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_season ON teams(season)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_season_asof ON team_metrics(season, asof_date)`,
}

// SQLite is a Reader over a local SQLite database
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLite{db: db}, nil
}

// InitSchema creates any missing tables and indices
func (s *SQLite) InitSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Import writes a fixture in one transaction. Games keep fixture order as
// their tie-breaking sequence.
func (s *SQLite) Import(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, t := range f.Teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO teams (team_id, season, name) VALUES (?,?,?)`,
			t.ID, t.Season, t.Name,
		); err != nil {
			return fmt.Errorf("insert team %s: %w", t.ID, err)
		}
	}

	for _, g := range f.Games {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (id, season, date, home_team_id, away_team_id, home_score, away_score, neutral)
			 VALUES (?,?,?,?,?,?,?,?)`,
			g.ID, g.Season, g.Date.Format(sqliteDateLayout), g.HomeTeamID, g.AwayTeamID,
			g.HomeScore, g.AwayScore, g.Neutral,
		); err != nil {
			return fmt.Errorf("insert game %s: %w", g.ID, err)
		}
	}

	for _, fv := range f.Features {
		for _, r := range flatten(fv) {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO team_metrics (team_id, season, asof_date, metric, value, label)
				 VALUES (?,?,?,?,?,?)`,
				r.teamID, fv.Season, r.asOf.Format(sqliteDateLayout), r.metric, r.value, r.label,
			); err != nil {
				return fmt.Errorf("insert metric %s/%s: %w", r.teamID, r.metric, err)
			}
		}
	}

	return tx.Commit()
}

// Games implements Reader
func (s *SQLite) Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, season, date, home_team_id, away_team_id, home_score, away_score, neutral, seq
		 FROM games
		 WHERE season = ? AND date <= ?
		 ORDER BY date ASC, seq ASC`,
		season, upTo.Format(sqliteDateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var (
			g    models.Game
			date string
		)
		if err := rows.Scan(&g.ID, &g.Season, &date, &g.HomeTeamID, &g.AwayTeamID,
			&g.HomeScore, &g.AwayScore, &g.Neutral, &g.Seq); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if g.Date, err = time.Parse(sqliteDateLayout, date); err != nil {
			return nil, fmt.Errorf("game %s has invalid date %q: %w", g.ID, date, err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Features implements Reader
func (s *SQLite) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.team_id, m.asof_date, m.metric, m.value, m.label
		 FROM team_metrics m
		 JOIN (
			SELECT team_id, MAX(asof_date) AS asof_date
			FROM team_metrics
			WHERE season = ? AND asof_date <= ?
			GROUP BY team_id
		 ) latest ON m.team_id = latest.team_id AND m.asof_date = latest.asof_date
		 WHERE m.season = ?`,
		season, asOf.Format(sqliteDateLayout), season,
	)
	if err != nil {
		return nil, fmt.Errorf("query team metrics: %w", err)
	}
	defer rows.Close()

	var metrics []metricRow
	for rows.Next() {
		var (
			r    metricRow
			date string
		)
		if err := rows.Scan(&r.teamID, &date, &r.metric, &r.value, &r.label); err != nil {
			return nil, fmt.Errorf("scan team metric: %w", err)
		}
		if r.asOf, err = time.Parse(sqliteDateLayout, date); err != nil {
			return nil, fmt.Errorf("metric %s/%s has invalid date %q: %w", r.teamID, r.metric, date, err)
		}
		metrics = append(metrics, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pivot(season, metrics), nil
}
