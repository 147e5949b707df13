package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultLocation is stored for matches whose venue the feed does not supply.
const DefaultLocation = "TBD"

// Match references two teams of the same sport. Team order is significant:
// BettingOdds.OddsTeam1 always prices Team1.
//
// MatchDate is naive UTC: the column has no zone and every value written is
// the UTC wall clock.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	MatchID    int64     `bun:"match_id,pk,autoincrement" json:"matchID"`
	SportID    int64     `bun:"sport_id,notnull" json:"sportID"`
	Team1ID    int64     `bun:"team1_id,notnull" json:"team1ID"`
	Team2ID    int64     `bun:"team2_id,notnull" json:"team2ID"`
	MatchDate  time.Time `bun:"match_date,notnull,type:timestamp" json:"matchDate"`
	Location   string    `bun:"location,notnull,default:'TBD'" json:"location"`
	FinalScore *string   `bun:"final_score" json:"finalScore,omitempty"`
}
