package models

import "github.com/uptrace/bun"

// Prediction is a stored pick for a match.
type Prediction struct {
	bun.BaseModel `bun:"table:predictions,alias:p"`

	PredictionID    int64    `bun:"prediction_id,pk,autoincrement" json:"predictionID"`
	MatchID         int64    `bun:"match_id,notnull" json:"matchID"`
	PredictedWinner *string  `bun:"predicted_winner" json:"predictedWinner,omitempty"`
	PredictedStats  *string  `bun:"predicted_stats" json:"predictedStats,omitempty"`
	ConfidenceScore *float64 `bun:"confidence_score" json:"confidenceScore,omitempty"`
}

// HistoricalStats stores free-form per-team stats for a played match.
type HistoricalStats struct {
	bun.BaseModel `bun:"table:historical_stats,alias:hs"`

	HistStatsID int64   `bun:"histstats_id,pk,autoincrement" json:"histStatsID"`
	MatchID     int64   `bun:"match_id,notnull" json:"matchID"`
	TeamID      int64   `bun:"team_id,notnull" json:"teamID"`
	Stats       *string `bun:"stats" json:"stats,omitempty"`
}

// Bet is a user's stake on a match.
type Bet struct {
	bun.BaseModel `bun:"table:bets,alias:b"`

	BetID        int64    `bun:"bet_id,pk,autoincrement" json:"betID"`
	UserID       int64    `bun:"user_id,notnull" json:"userID"`
	MatchID      int64    `bun:"match_id,notnull" json:"matchID"`
	PredictionID *int64   `bun:"prediction_id" json:"predictionID,omitempty"`
	Amount       float64  `bun:"amount,notnull" json:"amount"`
	Outcome      *string  `bun:"outcome" json:"outcome,omitempty"`
	ProfitLoss   *float64 `bun:"profit_loss" json:"profitLoss,omitempty"`
}
