package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/config"
	applog "github.com/padraicbc/nflodds/logger"
	"github.com/padraicbc/nflodds/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(5)
	sqldb.SetConnMaxLifetime(30 * time.Minute)

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

// Tables lists every model in dependency order.
var Tables = []interface{}{
	(*models.User)(nil),
	(*models.Sport)(nil),
	(*models.SportsTeam)(nil),
	(*models.SportsPlayer)(nil),
	(*models.Match)(nil),
	(*models.BettingOdds)(nil),
	(*models.TeamRating)(nil),
	(*models.Prediction)(nil),
	(*models.HistoricalStats)(nil),
	(*models.Bet)(nil),
}

// constraints backs every lookup-or-create in the store: concurrent runs race
// on these instead of on read-then-insert. The UNIQUE ones are ON CONFLICT
// targets in repo.go, so the store cannot write without them.
var constraints = []struct {
	name     string
	ddl      string
	required bool
}{
	{"sports_teams_no_dupes", `ALTER TABLE sports_teams ADD CONSTRAINT sports_teams_no_dupes UNIQUE (sport_id, team_name)`, true},
	{"matches_no_dupes", `ALTER TABLE matches ADD CONSTRAINT matches_no_dupes UNIQUE (sport_id, team1_id, team2_id, match_date)`, true},
	{"matches_distinct_teams", `ALTER TABLE matches ADD CONSTRAINT matches_distinct_teams CHECK (team1_id <> team2_id)`, false},
	{"betting_odds_no_dupes", `ALTER TABLE betting_odds ADD CONSTRAINT betting_odds_no_dupes UNIQUE (match_id, sports_books)`, true},
	{"betting_odds_decimal_prices", `ALTER TABLE betting_odds ADD CONSTRAINT betting_odds_decimal_prices CHECK (odds_team1 > 1 AND odds_team2 > 1)`, false},
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS matches_match_date_idx ON matches (match_date)`,
	`CREATE INDEX IF NOT EXISTS betting_odds_match_id_idx ON betting_odds (match_id)`,
}

// CreateTables creates all tables, constraints and indexes. Safe to re-run.
func CreateTables(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	log = applog.OrNop(log)
	for _, model := range Tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	if err := applyConstraints(ctx, db, log); err != nil {
		return err
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}

// applyConstraints adds any missing constraint. Existing rows that violate a
// CHECK only produce a warning; a missing UNIQUE is an error.
func applyConstraints(ctx context.Context, db execer, log *zap.Logger) error {
	for _, c := range constraints {
		stmt := fmt.Sprintf(
			`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN %s; END IF; END $$`,
			c.name, c.ddl,
		)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if c.required {
				return fmt.Errorf("adding constraint %s: %w", c.name, err)
			}
			log.Warn("constraint not applied", zap.String("constraint", c.name), zap.Error(err))
		}
	}
	return nil
}
