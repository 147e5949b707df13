package db

import (
	"context"
	"fmt"

	"github.com/padraicbc/nflodds/models"
)

// RatingByTeam returns ErrNotFound when the team has no rating row.
func (s *Store) RatingByTeam(ctx context.Context, team string) (*models.TeamRating, error) {
	r := &models.TeamRating{}
	err := s.db.NewSelect().Model(r).Where("team_name = ?", team).Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// InsertRatings inserts ratings whose team name is not already present and
// returns how many rows were added. Existing ratings are left untouched.
func (s *Store) InsertRatings(ctx context.Context, ratings []models.TeamRating) (int, error) {
	if len(ratings) == 0 {
		return 0, nil
	}
	res, err := s.db.NewInsert().Model(&ratings).
		On("CONFLICT (team_name) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert ratings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
