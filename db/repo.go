package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/nflodds/models"
)

// Repository is the set of writes a reconciliation pass performs. Every
// Ensure* call is lookup-or-create and reports whether it created the row.
type Repository interface {
	EnsureSport(ctx context.Context, name string) (*models.Sport, bool, error)
	EnsureTeam(ctx context.Context, sportID int64, name string) (*models.SportsTeam, bool, error)
	EnsureMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error)
	UpsertOdds(ctx context.Context, o *models.BettingOdds) (inserted bool, err error)
}

// Repo implements Repository on a pool or a transaction.
type Repo struct {
	db bun.IDB
}

var _ Repository = (*Repo)(nil)

// ON CONFLICT targets. Each must match a UNIQUE constraint from CreateTables.
const (
	sportConflict = "sport_name"
	teamConflict  = "sport_id, team_name"
	matchConflict = "sport_id, team1_id, team2_id, match_date"
	oddsConflict  = "match_id, sports_books"
)

type lookupFunc func(*bun.SelectQuery) *bun.SelectQuery

// ensure selects with lookup; on a miss it inserts with ON CONFLICT DO NOTHING
// and selects again, so a concurrent creator wins without an error.
func ensure[T any](ctx context.Context, idb bun.IDB, row *T, conflict string, lookup lookupFunc) (bool, error) {
	err := lookup(idb.NewSelect().Model(row)).Limit(1).Scan(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	res, err := insertMissing(idb, row, conflict).Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := lookup(idb.NewSelect().Model(row)).Limit(1).Scan(ctx); err != nil {
		return false, err
	}
	return n == 1, nil
}

func insertMissing(idb bun.IDB, row interface{}, conflict string) *bun.InsertQuery {
	return idb.NewInsert().Model(row).
		On("CONFLICT (" + conflict + ") DO NOTHING").
		Returning("NULL")
}

func sportLookup(name string) lookupFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("sport_name = ?", name)
	}
}

func teamLookup(sportID int64, name string) lookupFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("sport_id = ?", sportID).Where("team_name = ?", name)
	}
}

func matchLookup(m *models.Match) lookupFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("sport_id = ?", m.SportID).
			Where("team1_id = ?", m.Team1ID).
			Where("team2_id = ?", m.Team2ID).
			Where("match_date = ?", m.MatchDate)
	}
}

// EnsureSport resolves a sport by name.
func (r *Repo) EnsureSport(ctx context.Context, name string) (*models.Sport, bool, error) {
	sport := &models.Sport{SportName: name}
	created, err := ensure(ctx, r.db, sport, sportConflict, sportLookup(name))
	if err != nil {
		return nil, false, fmt.Errorf("ensure sport %q: %w", name, err)
	}
	return sport, created, nil
}

// EnsureTeam resolves a team by name within a sport.
func (r *Repo) EnsureTeam(ctx context.Context, sportID int64, name string) (*models.SportsTeam, bool, error) {
	team := &models.SportsTeam{SportID: sportID, TeamName: name}
	created, err := ensure(ctx, r.db, team, teamConflict, teamLookup(sportID, name))
	if err != nil {
		return nil, false, fmt.Errorf("ensure team %q: %w", name, err)
	}
	return team, created, nil
}

// EnsureMatch resolves a match by (sport, team1, team2, match_date). Location
// and final score on m are only used when the row is created.
func (r *Repo) EnsureMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	row := *m
	row.MatchDate = m.MatchDate.UTC()
	if row.Location == "" {
		row.Location = models.DefaultLocation
	}
	created, err := ensure(ctx, r.db, &row, matchConflict, matchLookup(&row))
	if err != nil {
		return nil, false, fmt.Errorf("ensure match %d v %d at %s: %w", m.Team1ID, m.Team2ID, row.MatchDate.Format(time.DateTime), err)
	}
	return &row, created, nil
}

// UpsertOdds writes one (match, bookmaker) row: new rows are inserted, an
// existing row gets the new prices and timestamp.
func (r *Repo) UpsertOdds(ctx context.Context, o *models.BettingOdds) (bool, error) {
	var inserted bool
	err := upsertOddsQuery(r.db, o).Scan(ctx, &o.OddsID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert odds match=%d book=%q: %w", o.MatchID, o.SportsBooks, err)
	}
	return inserted, nil
}

// upsertOddsQuery reports the row id and whether the row is new; xmax is zero
// only for a freshly inserted tuple.
func upsertOddsQuery(idb bun.IDB, o *models.BettingOdds) *bun.InsertQuery {
	return idb.NewInsert().Model(o).
		On("CONFLICT (" + oddsConflict + ") DO UPDATE").
		Set("odds_team1 = EXCLUDED.odds_team1").
		Set("odds_team2 = EXCLUDED.odds_team2").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("odds_id, (xmax = 0)")
}
