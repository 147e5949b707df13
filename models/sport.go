package models

import "github.com/uptrace/bun"

// Sport is created lazily the first time a feed for it is ingested.
type Sport struct {
	bun.BaseModel `bun:"table:sports,alias:s"`

	SportID   int64  `bun:"sport_id,pk,autoincrement" json:"sportID"`
	SportName string `bun:"sport_name,notnull,unique" json:"sportName"`
}
