package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/provider"
	"github.com/padraicbc/nflodds/query"
)

func TestRoot(t *testing.T) {
	env := newEnv(false)
	rec := env.do(http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["message"] != "connected" {
		t.Errorf("body = %v", body)
	}
}

func TestUpdateOdds(t *testing.T) {
	env := newEnv(false)

	rec := env.do(http.MethodPost, "/update-odds/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var ok struct {
		Message string `json:"message"`
		Summary struct {
			RunID string `json:"run_id"`
		} `json:"summary"`
	}
	decode(t, rec, &ok)
	if ok.Message != "Odds updated successfully" || ok.Summary.RunID != "r1" {
		t.Errorf("body = %+v", ok)
	}

	env.ingest.err = fmt.Errorf("fetch snapshot: %w", &provider.Error{Status: 401, Body: "bad key"})
	rec = env.do(http.MethodPost, "/update-odds/", "", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var fail map[string]string
	decode(t, rec, &fail)
	if fail["error"] != "update_odds failed" || fail["detail"] == "" {
		t.Errorf("body = %v", fail)
	}
}

func TestOdds_PassesSelector(t *testing.T) {
	env := newEnv(false)
	env.odds.rows = []query.Row{{MatchID: 1, Team1: "Buffalo Bills", Team2: "New York Jets", SportsBooks: "FanDuel", OddsTeam1: 1.8, OddsTeam2: 2.1, MatchDate: "2025-11-06T01:20:00"}}

	rec := env.do(http.MethodGet, "/odds?date_from=2025-11-01&date_to=2025-11-09&upcoming=true&limit=900", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	got := env.odds.got[0]
	want := query.Selector{DateFrom: "2025-11-01", DateTo: "2025-11-09", Upcoming: true, Limit: query.MaxLimit}
	if got != want {
		t.Errorf("selector = %+v, want %+v", got, want)
	}

	var rows []map[string]interface{}
	decode(t, rec, &rows)
	if len(rows) != 1 || rows[0]["team1"] != "Buffalo Bills" || rows[0]["match_date"] != "2025-11-06T01:20:00" {
		t.Errorf("rows = %v", rows)
	}
	if rows[0]["odds_team1"] != 1.8 {
		t.Errorf("odds_team1 = %v", rows[0]["odds_team1"])
	}
}

func TestOdds_DefaultLimitAndEmptyList(t *testing.T) {
	env := newEnv(false)
	env.odds.rows = []query.Row{}
	rec := env.do(http.MethodGet, "/odds", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.odds.got[0].Limit != query.DefaultLimit {
		t.Errorf("limit = %d", env.odds.got[0].Limit)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty list", body)
	}
}

func TestOdds_BadRequests(t *testing.T) {
	env := newEnv(false)
	for _, target := range []string{"/odds?limit=0", "/odds?limit=abc", "/predictions?limit=-1"} {
		if rec := env.do(http.MethodGet, target, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}

	env.odds.err = fmt.Errorf("%w: date_from %q", query.ErrInvalidDate, "nope")
	if rec := env.do(http.MethodGet, "/odds?date_from=nope&date_to=2025-01-01", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}

	env.odds.err = errors.New("db down")
	if rec := env.do(http.MethodGet, "/odds", "", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: status = %d, want 500", rec.Code)
	}
}

func TestPredictions(t *testing.T) {
	env := newEnv(false)
	env.odds.rows = []query.Row{
		{MatchID: 1, Team1: "Buffalo Bills", Team2: "New York Jets", SportsBooks: "DraftKings"},
		{MatchID: 1, Team1: "Buffalo Bills", Team2: "New York Jets", SportsBooks: "FanDuel"},
		{MatchID: 2, Team1: "A", Team2: "B", SportsBooks: "FanDuel"},
	}

	rec := env.do(http.MethodGet, "/predictions?date_from=2020-01-01&date_to=2020-01-02", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if sel := env.odds.got[0]; !sel.Upcoming || sel.DateFrom != "" || sel.Limit != query.DefaultLimit {
		t.Errorf("selector = %+v, want upcoming only", sel)
	}
	if env.model.calls != 2 {
		t.Errorf("model called %d times, want once per match", env.model.calls)
	}

	var rows []map[string]interface{}
	decode(t, rec, &rows)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1]["model_prob_team1"] != 0.7 || rows[1]["model_prob_team2"] != 0.3 {
		t.Errorf("row = %v", rows[1])
	}
	if rows[2]["model_prob_team1"] != 0.5 || rows[2]["sports_books"] != "FanDuel" {
		t.Errorf("row = %v", rows[2])
	}

	env.model.err = errors.New("ratings unavailable")
	if rec := env.do(http.MethodGet, "/predictions", "", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSeedRatings(t *testing.T) {
	env := newEnv(false)
	admin := env.users.add(t, "Admin", "admin@example.com", "pw-admin", models.RoleAdmin)
	fan := env.users.add(t, "Fan", "fan@example.com", "pw-fan", models.RoleUser)
	adminTok, _ := env.tokens.Issue(admin.UserID, admin.Email)
	fanTok, _ := env.tokens.Issue(fan.UserID, fan.Email)
	ghostTok, _ := env.tokens.Issue(999, "ghost@example.com")

	if rec := env.do(http.MethodPost, "/ratings/seed", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/ratings/seed", "", fanTok); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: status = %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/ratings/seed", "", ghostTok); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d", rec.Code)
	}

	env.ratings.have["Buffalo Bills"] = true
	rec := env.do(http.MethodPost, "/ratings/seed", "", adminTok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var body map[string]int
	decode(t, rec, &body)
	if body["inserted"] != 31 {
		t.Errorf("inserted = %d, want 31", body["inserted"])
	}

	rec = env.do(http.MethodPost, "/ratings/seed", "", adminTok)
	decode(t, rec, &body)
	if body["inserted"] != 0 {
		t.Errorf("second seed inserted = %d, want 0", body["inserted"])
	}
}

func TestDebugRoutes(t *testing.T) {
	if rec := newEnv(false).do(http.MethodGet, "/debug/counts", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("debug route mounted outside debug mode: %d", rec.Code)
	}

	env := newEnv(true)
	rec := env.do(http.MethodGet, "/debug/counts", "", "")
	var counts map[string]int
	decode(t, rec, &counts)
	if counts["teams"] != 2 || counts["matches"] != 1 || counts["odds"] != 3 {
		t.Errorf("counts = %v", counts)
	}

	env.prov.snap = &provider.Snapshot{
		Raw: []json.RawMessage{
			json.RawMessage(`{"id":"e1","sport_key":"americanfootball_nfl","commence_time":"2025-11-06T01:20:00Z","home_team":"Buffalo Bills"}`),
			json.RawMessage(`{"id":"e2"}`),
		},
		Events: []provider.Event{{ID: "e1", CommenceTime: "2025-11-06T01:20:00Z"}, {ID: "e2"}},
	}
	rec = env.do(http.MethodGet, "/debug/provider", "", "")
	var probe struct {
		Count      int      `json:"count"`
		SampleKeys []string `json:"sample_keys"`
		First      *string  `json:"first_commence_time"`
	}
	decode(t, rec, &probe)
	if probe.Count != 2 || probe.First == nil || *probe.First != "2025-11-06T01:20:00Z" {
		t.Errorf("probe = %+v", probe)
	}
	wantKeys := []string{"id", "sport_key", "commence_time", "home_team"}
	if fmt.Sprint(probe.SampleKeys) != fmt.Sprint(wantKeys) {
		t.Errorf("sample_keys = %v, want %v", probe.SampleKeys, wantKeys)
	}

	env.prov.snap = &provider.Snapshot{}
	rec = env.do(http.MethodGet, "/debug/provider", "", "")
	probe.First = nil
	decode(t, rec, &probe)
	if probe.Count != 0 || len(probe.SampleKeys) != 0 || probe.First != nil {
		t.Errorf("empty probe = %+v", probe)
	}

	env.prov.err = errors.New("provider error 500: boom")
	if rec := env.do(http.MethodGet, "/debug/provider", "", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
