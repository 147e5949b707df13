package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/provider"
)

type teamKey struct {
	sport int64
	name  string
}

type matchKey struct {
	sport, team1, team2 int64
	date                time.Time
}

type oddsKey struct {
	match int64
	book  string
}

// memState mirrors the unique constraints of the real schema.
type memState struct {
	nextID  int64
	sports  map[string]models.Sport
	teams   map[teamKey]models.SportsTeam
	matches map[matchKey]models.Match
	odds    map[oddsKey]models.BettingOdds
}

func newMemState() *memState {
	return &memState{
		sports:  map[string]models.Sport{},
		teams:   map[teamKey]models.SportsTeam{},
		matches: map[matchKey]models.Match{},
		odds:    map[oddsKey]models.BettingOdds{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.sports {
		c.sports[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.odds {
		c.odds[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore is a transactional in-memory Store: InTx works on a copy and
// publishes it only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	state    *memState
	failTeam string

	locked   int
	released int
	sportErr error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) EnsureSport(ctx context.Context, name string) (int64, error) {
	if m.sportErr != nil {
		return 0, m.sportErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _, err := (&memRepo{st: m.state}).EnsureSport(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.SportID, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, r db.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(ctx, &memRepo{st: work, failTeam: m.failTeam}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) LockFeed(ctx context.Context, feed string) (func(), error) {
	m.locked++
	return func() { m.released++ }, nil
}

func (m *memStore) counts() (teams, matches, odds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.teams), len(m.state.matches), len(m.state.odds)
}

func (m *memStore) allOdds() []models.BettingOdds {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BettingOdds, 0, len(m.state.odds))
	for _, o := range m.state.odds {
		out = append(out, o)
	}
	return out
}

func (m *memStore) allMatches() []models.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Match, 0, len(m.state.matches))
	for _, v := range m.state.matches {
		out = append(out, v)
	}
	return out
}

type memRepo struct {
	st       *memState
	failTeam string
}

var _ db.Repository = (*memRepo)(nil)

func (r *memRepo) EnsureSport(ctx context.Context, name string) (*models.Sport, bool, error) {
	if s, ok := r.st.sports[name]; ok {
		return &s, false, nil
	}
	s := models.Sport{SportID: r.st.id(), SportName: name}
	r.st.sports[name] = s
	return &s, true, nil
}

func (r *memRepo) EnsureTeam(ctx context.Context, sportID int64, name string) (*models.SportsTeam, bool, error) {
	if name == r.failTeam {
		return nil, false, fmt.Errorf("ensure team %q: %w", name, errors.New("connection reset"))
	}
	k := teamKey{sportID, name}
	if t, ok := r.st.teams[k]; ok {
		return &t, false, nil
	}
	t := models.SportsTeam{TeamID: r.st.id(), SportID: sportID, TeamName: name}
	r.st.teams[k] = t
	return &t, true, nil
}

func (r *memRepo) EnsureMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	if m.Team1ID == m.Team2ID {
		return nil, false, errors.New("matches_distinct_teams violated")
	}
	k := matchKey{m.SportID, m.Team1ID, m.Team2ID, m.MatchDate}
	if existing, ok := r.st.matches[k]; ok {
		return &existing, false, nil
	}
	row := *m
	row.MatchID = r.st.id()
	r.st.matches[k] = row
	return &row, true, nil
}

func (r *memRepo) UpsertOdds(ctx context.Context, o *models.BettingOdds) (bool, error) {
	if !o.OddsTeam1.GreaterThan(minPrice) || !o.OddsTeam2.GreaterThan(minPrice) {
		return false, errors.New("betting_odds_decimal_prices violated")
	}
	k := oddsKey{o.MatchID, o.SportsBooks}
	if existing, ok := r.st.odds[k]; ok {
		existing.OddsTeam1 = o.OddsTeam1
		existing.OddsTeam2 = o.OddsTeam2
		existing.UpdatedAt = o.UpdatedAt
		r.st.odds[k] = existing
		o.OddsID = existing.OddsID
		return false, nil
	}
	row := *o
	row.OddsID = r.st.id()
	r.st.odds[k] = row
	o.OddsID = row.OddsID
	return true, nil
}

type staticFetcher struct {
	snap  *provider.Snapshot
	err   error
	calls int
}

func (f *staticFetcher) Fetch(ctx context.Context) (*provider.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *staticFetcher) Feed() string { return "test/americanfootball_nfl" }

type recordingNotifier struct {
	got []*Summary
}

func (n *recordingNotifier) Notify(ctx context.Context, s *Summary) error {
	n.got = append(n.got, s)
	return nil
}

func snapshot(events ...provider.Event) *provider.Snapshot {
	return &provider.Snapshot{Events: events}
}

func event(id, home, away, commence string, books ...provider.Bookmaker) provider.Event {
	return provider.Event{ID: id, HomeTeam: home, AwayTeam: away, CommenceTime: commence, Bookmakers: books}
}

func h2hBook(title, key string, outcomes ...provider.Outcome) provider.Bookmaker {
	return provider.Bookmaker{
		Title: title,
		Key:   key,
		Markets: []provider.Market{
			{Key: "spreads", Outcomes: []provider.Outcome{out("x", "1.91"), out("y", "1.91")}},
			{Key: provider.MarketHeadToHead, Outcomes: outcomes},
		},
	}
}

func out(name, price string) provider.Outcome {
	return provider.Outcome{Name: name, Price: provider.P(price)}
}
