package models

import "github.com/uptrace/bun"

// TeamRating is seeded out of band and only read by the prediction model.
type TeamRating struct {
	bun.BaseModel `bun:"table:team_ratings,alias:tr"`

	RatingID int64   `bun:"rating_id,pk,autoincrement" json:"ratingID"`
	TeamName string  `bun:"team_name,notnull,unique" json:"teamName" yaml:"team"`
	Offense  float64 `bun:"offense,notnull" json:"offense" yaml:"offense"`
	Defense  float64 `bun:"defense,notnull" json:"defense" yaml:"defense"`
	Overall  float64 `bun:"overall,notnull" json:"overall" yaml:"overall"`
}
