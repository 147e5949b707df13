package predict

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/models"
)

type mapRatings struct {
	byTeam map[string]float64
	err    error
}

func (m mapRatings) RatingByTeam(ctx context.Context, team string) (*models.TeamRating, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.byTeam[team]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &models.TeamRating{TeamName: team, Overall: r}, nil
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestProbs(t *testing.T) {
	tests := []struct {
		r1, r2 float64
		want1  float64
	}{
		{0, 0, 0.5},
		{12, 0, 1 / (1 + math.Exp(-1))},
		{0, 12, 1 / (1 + math.Exp(1))},
		{7, -3, 1 / (1 + math.Exp(-10.0/12))},
	}
	for _, tt := range tests {
		p1, p2 := Probs(tt.r1, tt.r2)
		if !almost(p1, tt.want1) {
			t.Errorf("Probs(%v, %v) p1 = %v, want %v", tt.r1, tt.r2, p1, tt.want1)
		}
		if !almost(p1+p2, 1) {
			t.Errorf("Probs(%v, %v) sums to %v", tt.r1, tt.r2, p1+p2)
		}
		q1, q2 := Probs(tt.r2, tt.r1)
		if !almost(q1, p2) || !almost(q2, p1) {
			t.Errorf("Probs not symmetric for %v, %v", tt.r1, tt.r2)
		}
	}
}

func TestMatchProbs(t *testing.T) {
	m := NewModel(mapRatings{byTeam: map[string]float64{"Buffalo Bills": 7, "New York Jets": -3}})
	ctx := context.Background()

	p1, p2, err := m.MatchProbs(ctx, "Buffalo Bills", "New York Jets")
	if err != nil {
		t.Fatal(err)
	}
	w1, w2 := Probs(7, -3)
	if !almost(p1, w1) || !almost(p2, w2) {
		t.Errorf("got %v/%v, want %v/%v", p1, p2, w1, w2)
	}
	if p1 <= 0.5 {
		t.Errorf("higher rated side p1 = %v", p1)
	}

	for _, pair := range [][2]string{
		{"Buffalo Bills", "Unknown FC"},
		{"Unknown FC", "New York Jets"},
		{"A", "B"},
	} {
		p1, p2, err := m.MatchProbs(ctx, pair[0], pair[1])
		if err != nil || p1 != 0.5 || p2 != 0.5 {
			t.Errorf("MatchProbs(%q, %q) = %v, %v, %v; want 0.5, 0.5", pair[0], pair[1], p1, p2, err)
		}
	}
}

func TestMatchProbs_StoreError(t *testing.T) {
	boom := errors.New("db down")
	m := NewModel(mapRatings{err: boom})
	if _, _, err := m.MatchProbs(context.Background(), "a", "b"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestDefaultRatings(t *testing.T) {
	ratings, err := DefaultRatings()
	if err != nil {
		t.Fatal(err)
	}
	if len(ratings) != 32 {
		t.Errorf("seed has %d teams, want 32", len(ratings))
	}
	found := false
	for _, r := range ratings {
		if r.TeamName == "Buffalo Bills" {
			found = true
			if r.Overall != 7 {
				t.Errorf("Buffalo Bills overall = %v", r.Overall)
			}
		}
	}
	if !found {
		t.Error("Buffalo Bills missing from seed")
	}
}
