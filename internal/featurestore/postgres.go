package featurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/bracket-forecast/internal/database"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Postgres is a Reader over the PostgreSQL schema created by database.InitSchema
type Postgres struct {
	db *database.DB
}

// NewPostgres creates a Postgres reader
func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

// Import writes a fixture in one transaction
func (p *Postgres) Import(ctx context.Context, f *Fixture) error {
	return p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, t := range f.Teams {
			if _, err := tx.Exec(ctx, `
				INSERT INTO teams (team_id, season, name) VALUES ($1, $2, $3)
				ON CONFLICT (team_id, season) DO UPDATE SET name = EXCLUDED.name`,
				t.ID, t.Season, t.Name,
			); err != nil {
				return fmt.Errorf("insert team %s: %w", t.ID, err)
			}
		}

		for _, g := range f.Games {
			if err := g.Validate(); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO games (id, season, date, home_team_id, away_team_id, home_score, away_score, neutral)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				g.ID, g.Season, g.Date, g.HomeTeamID, g.AwayTeamID, g.HomeScore, g.AwayScore, g.Neutral,
			); err != nil {
				return fmt.Errorf("insert game %s: %w", g.ID, err)
			}
		}

		for _, fv := range f.Features {
			for _, r := range flatten(fv) {
				if _, err := tx.Exec(ctx, `
					INSERT INTO team_metrics (team_id, season, asof_date, metric, value, label)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (team_id, season, asof_date, metric)
					DO UPDATE SET value = EXCLUDED.value, label = EXCLUDED.label`,
					r.teamID, fv.Season, r.asOf, r.metric, r.value, r.label,
				); err != nil {
					return fmt.Errorf("insert metric %s/%s: %w", r.teamID, r.metric, err)
				}
			}
		}
		return nil
	})
}

// Games implements Reader
func (p *Postgres) Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, season, date, home_team_id, away_team_id, home_score, away_score, neutral, seq
		FROM games
		WHERE season = $1 AND date <= $2
		ORDER BY date ASC, seq ASC`,
		season, upTo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Season, &g.Date, &g.HomeTeamID, &g.AwayTeamID,
			&g.HomeScore, &g.AwayScore, &g.Neutral, &g.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Features implements Reader
func (p *Postgres) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	rows, err := p.db.Query(ctx, `
		SELECT m.team_id, m.asof_date, m.metric, m.value, m.label
		FROM team_metrics m
		JOIN (
			SELECT team_id, MAX(asof_date) AS asof_date
			FROM team_metrics
			WHERE season = $1 AND asof_date <= $2
			GROUP BY team_id
		) latest ON m.team_id = latest.team_id AND m.asof_date = latest.asof_date
		WHERE m.season = $1`,
		season, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query team metrics: %w", err)
	}
	defer rows.Close()

	var metrics []metricRow
	for rows.Next() {
		var r metricRow
		if err := rows.Scan(&r.teamID, &r.asOf, &r.metric, &r.value, &r.label); err != nil {
			return nil, fmt.Errorf("failed to scan team metric: %w", err)
		}
		metrics = append(metrics, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pivot(season, metrics), nil
}
