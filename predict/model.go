// Package predict turns team ratings into a naive win-probability split.
package predict

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/models"
)

// Scale is the rating difference that moves the split by one logistic unit.
const Scale = 12.0

//go:embed ratings.yaml
var seedYAML []byte

// RatingSource looks up a team's rating. A missing team is reported as
// db.ErrNotFound.
type RatingSource interface {
	RatingByTeam(ctx context.Context, team string) (*models.TeamRating, error)
}

// Probs maps overall ratings to (p1, p2) with p1+p2 = 1.
func Probs(r1, r2 float64) (p1, p2 float64) {
	diff := r1 - r2
	p1 = 1 / (1 + math.Exp(-diff/Scale))
	return p1, 1 - p1
}

type Model struct {
	ratings RatingSource
}

func NewModel(ratings RatingSource) *Model {
	return &Model{ratings: ratings}
}

// MatchProbs returns 0.5/0.5 when either team is unrated. Store errors
// other than a missing row are returned.
func (m *Model) MatchProbs(ctx context.Context, team1, team2 string) (p1, p2 float64, err error) {
	r1, err := m.ratings.RatingByTeam(ctx, team1)
	if errors.Is(err, db.ErrNotFound) {
		return 0.5, 0.5, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("rating for %q: %w", team1, err)
	}
	r2, err := m.ratings.RatingByTeam(ctx, team2)
	if errors.Is(err, db.ErrNotFound) {
		return 0.5, 0.5, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("rating for %q: %w", team2, err)
	}
	p1, p2 = Probs(r1.Overall, r2.Overall)
	return p1, p2, nil
}

// DefaultRatings returns the embedded seed table.
func DefaultRatings() ([]models.TeamRating, error) {
	var doc struct {
		Ratings []models.TeamRating `yaml:"ratings"`
	}
	if err := yaml.Unmarshal(seedYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode rating seed: %w", err)
	}
	seen := make(map[string]bool, len(doc.Ratings))
	for i := range doc.Ratings {
		name := strings.TrimSpace(doc.Ratings[i].TeamName)
		if name == "" {
			return nil, fmt.Errorf("rating seed entry %d has no team", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("rating seed lists %q twice", name)
		}
		seen[name] = true
		doc.Ratings[i].TeamName = name
	}
	return doc.Ratings, nil
}
