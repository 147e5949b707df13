package models

import "github.com/uptrace/bun"

// SportsTeam belongs to exactly one sport and is looked up by (sport, name).
type SportsTeam struct {
	bun.BaseModel `bun:"table:sports_teams,alias:t"`

	TeamID   int64  `bun:"sports_teamsid,pk,autoincrement" json:"teamID"`
	SportID  int64  `bun:"sport_id,notnull" json:"sportID"`
	TeamName string `bun:"team_name,notnull" json:"teamName"`

	Sport *Sport `bun:"rel:belongs-to,join:sport_id=sport_id" json:"-"`
}

// SportsPlayer is a roster entry. Not populated by the odds feed.
type SportsPlayer struct {
	bun.BaseModel `bun:"table:sports_players,alias:sp"`

	PlayerID   int64   `bun:"player_id,pk,autoincrement" json:"playerID"`
	TeamID     int64   `bun:"sports_teamsid,notnull" json:"teamID"`
	PlayerName string  `bun:"player_name,notnull" json:"playerName"`
	Position   *string `bun:"position" json:"position,omitempty"`
	Stats      *string `bun:"stats" json:"stats,omitempty"`
}
