// Package query reads windowed odds for the API.
package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/db"
	applog "github.com/padraicbc/nflodds/logger"
)

// MatchDateLayout is ISO-8601 without a zone; stored times are UTC.
const MatchDateLayout = "2006-01-02T15:04:05"

// Reader is the storage the service reads from; *db.Store satisfies it.
type Reader interface {
	ListOdds(ctx context.Context, from, to time.Time, limit int) ([]db.OddsRow, error)
}

// Row is one (match, bookmaker) pair as served to clients.
type Row struct {
	MatchID     int64   `json:"match_id"`
	Team1       string  `json:"team1"`
	Team2       string  `json:"team2"`
	SportsBooks string  `json:"sports_books"`
	OddsTeam1   float64 `json:"odds_team1"`
	OddsTeam2   float64 `json:"odds_team2"`
	MatchDate   string  `json:"match_date"`
}

type Service struct {
	reader Reader
	log    *zap.Logger
	now    func() time.Time
}

func NewService(reader Reader, log *zap.Logger) *Service {
	return &Service{reader: reader, log: applog.OrNop(log), now: time.Now}
}

// Odds returns the rows for sel's window ordered by match date.
func (s *Service) Odds(ctx context.Context, sel Selector) ([]Row, error) {
	from, to, err := Window(sel, s.now())
	if err != nil {
		return nil, err
	}
	limit := ClampLimit(sel.Limit)

	rows, err := s.reader.ListOdds(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	s.log.Debug("odds query",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("limit", limit),
		zap.Int("rows", len(rows)),
	)

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, Row{
			MatchID:     r.MatchID,
			Team1:       r.Team1,
			Team2:       r.Team2,
			SportsBooks: r.SportsBooks,
			OddsTeam1:   r.OddsTeam1.InexactFloat64(),
			OddsTeam2:   r.OddsTeam2.InexactFloat64(),
			MatchDate:   r.MatchDate.UTC().Format(MatchDateLayout),
		})
	}
	return out, nil
}
