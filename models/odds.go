package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BettingOdds holds one bookmaker's head-to-head decimal prices for a match.
// There is at most one row per (match, bookmaker).
type BettingOdds struct {
	bun.BaseModel `bun:"table:betting_odds,alias:o"`

	OddsID      int64           `bun:"odds_id,pk,autoincrement" json:"oddsID"`
	MatchID     int64           `bun:"match_id,notnull" json:"matchID"`
	SportsBooks string          `bun:"sports_books,notnull" json:"sportsBooks"`
	OddsTeam1   decimal.Decimal `bun:"odds_team1,notnull,type:numeric(12,4)" json:"oddsTeam1"`
	OddsTeam2   decimal.Decimal `bun:"odds_team2,notnull,type:numeric(12,4)" json:"oddsTeam2"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,type:timestamp" json:"updatedAt"`
}
