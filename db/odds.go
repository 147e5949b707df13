package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OddsRow is one (match, bookmaker) pair joined to both team names.
type OddsRow struct {
	MatchID     int64           `bun:"match_id"`
	Team1       string          `bun:"team1"`
	Team2       string          `bun:"team2"`
	SportsBooks string          `bun:"sports_books"`
	OddsTeam1   decimal.Decimal `bun:"odds_team1"`
	OddsTeam2   decimal.Decimal `bun:"odds_team2"`
	MatchDate   time.Time       `bun:"match_date"`
}

// oddsQuery builds the windowed select. Both bounds are inclusive naive-UTC instants.
func oddsQuery(idb bun.IDB, from, to time.Time, limit int) *bun.SelectQuery {
	return idb.NewSelect().
		TableExpr("matches AS m").
		ColumnExpr("m.match_id").
		ColumnExpr("t1.team_name AS team1").
		ColumnExpr("t2.team_name AS team2").
		ColumnExpr("o.sports_books, o.odds_team1, o.odds_team2").
		ColumnExpr("m.match_date").
		Join("INNER JOIN betting_odds AS o ON o.match_id = m.match_id").
		Join("INNER JOIN sports_teams AS t1 ON t1.sports_teamsid = m.team1_id").
		Join("INNER JOIN sports_teams AS t2 ON t2.sports_teamsid = m.team2_id").
		Where("m.match_date >= ?", from.UTC()).
		Where("m.match_date <= ?", to.UTC()).
		OrderExpr("m.match_date ASC, m.match_id ASC, o.sports_books ASC").
		Limit(limit)
}

// ListOdds returns odds rows for matches dated within [from, to].
func (s *Store) ListOdds(ctx context.Context, from, to time.Time, limit int) ([]OddsRow, error) {
	rows := []OddsRow{}
	if err := oddsQuery(s.db, from, to, limit).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list odds: %w", err)
	}
	for i := range rows {
		// timestamp columns come back without a zone; pin them to UTC.
		rows[i].MatchDate = naiveUTC(rows[i].MatchDate)
	}
	return rows, nil
}

func naiveUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
