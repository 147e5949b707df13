package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/nflodds/auth"
	"github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/ingest"
	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/provider"
	"github.com/padraicbc/nflodds/query"
)

var testKey = []byte("handler-test-key")

type fakeIngester struct {
	sum *ingest.Summary
	err error
}

func (f *fakeIngester) Run(ctx context.Context) (*ingest.Summary, error) {
	return f.sum, f.err
}

type fakeOdds struct {
	rows []query.Row
	err  error
	got  []query.Selector
}

func (f *fakeOdds) Odds(ctx context.Context, sel query.Selector) ([]query.Row, error) {
	f.got = append(f.got, sel)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeModel struct {
	calls int
	err   error
}

func (f *fakeModel) MatchProbs(ctx context.Context, team1, team2 string) (float64, float64, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	if team1 == "Buffalo Bills" {
		return 0.7, 0.3, nil
	}
	return 0.5, 0.5, nil
}

// fakeUsers keeps users in memory with the store's email uniqueness.
type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func (f *fakeUsers) CreateUser(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return db.ErrDuplicate
		}
	}
	f.nextID++
	u.UserID = f.nextID
	cp := *u
	f.byID[u.UserID] = &cp
	return nil
}

func (f *fakeUsers) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUsers) UserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// add stores a user with a real bcrypt hash of password.
func (f *fakeUsers) add(t *testing.T, name, email, password, role string) *models.User {
	t.Helper()
	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{Name: name, Email: email, Role: role, PasswordHash: hash}
	if err := f.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

type fakeRatings struct {
	have map[string]bool
}

func (f *fakeRatings) InsertRatings(ctx context.Context, ratings []models.TeamRating) (int, error) {
	n := 0
	for _, r := range ratings {
		if !f.have[r.TeamName] {
			f.have[r.TeamName] = true
			n++
		}
	}
	return n, nil
}

type fakeCounter struct{ c db.Counts }

func (f fakeCounter) Counts(ctx context.Context) (db.Counts, error) { return f.c, nil }

type fakeProvider struct {
	snap *provider.Snapshot
	err  error
}

func (f fakeProvider) Fetch(ctx context.Context) (*provider.Snapshot, error) {
	return f.snap, f.err
}

type testEnv struct {
	e       *echo.Echo
	tokens  *auth.Tokens
	ingest  *fakeIngester
	odds    *fakeOdds
	model   *fakeModel
	users   *fakeUsers
	ratings *fakeRatings
	prov    *fakeProvider
}

func newEnv(debug bool) *testEnv {
	env := &testEnv{
		e:       echo.New(),
		tokens:  auth.NewTokens(testKey, time.Hour),
		ingest:  &fakeIngester{sum: &ingest.Summary{RunID: "r1", Events: 1}},
		odds:    &fakeOdds{},
		model:   &fakeModel{},
		users:   newFakeUsers(),
		ratings: &fakeRatings{have: map[string]bool{}},
		prov:    &fakeProvider{snap: &provider.Snapshot{}},
	}
	h := New(Deps{
		Ingester: env.ingest,
		Odds:     env.odds,
		Model:    env.model,
		Users:    env.users,
		Ratings:  env.ratings,
		Tokens:   env.tokens,
		Counter:  fakeCounter{db.Counts{Teams: 2, Matches: 1, Odds: 3}},
		Provider: env.prov,
	})
	Register(env.e, h, env.tokens, debug)
	return env
}

func (env *testEnv) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
