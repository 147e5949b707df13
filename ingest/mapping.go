package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/nflodds/provider"
)

// UnknownBookmaker names a bookmaker that carries neither a title nor a key.
const UnknownBookmaker = "Unknown"

var (
	// ErrSkipEvent marks an event missing a field required to place a match.
	ErrSkipEvent = errors.New("event skipped")
	// ErrSkipBookmaker marks a bookmaker without a usable head-to-head line.
	ErrSkipBookmaker = errors.New("bookmaker skipped")
	// ErrPriceRejected marks a price that is not a finite decimal above 1.0.
	ErrPriceRejected = errors.New("price rejected")
)

var (
	minPrice = decimal.NewFromInt(1)
	// numeric(12,4) holds at most 8 integer digits.
	maxPrice = decimal.New(1, 8)
)

// Bounds checked before any decimal arithmetic. Rounding or comparing a value
// like 1e2147483647 rescales it to billions of digits.
const (
	maxPriceLen      = 32
	minPriceExponent = -20
	maxPriceExponent = 8
)

// fixture is an event that passed validation, ready to be written.
type fixture struct {
	Home  string
	Away  string
	Start time.Time
	Lines []line
}

// line is one bookmaker's head-to-head prices aligned to home (team1) and away (team2).
type line struct {
	Book  string
	Team1 decimal.Decimal
	Team2 decimal.Decimal
}

// validateEvent checks everything about ev that can be checked without the
// store, so a rejected event causes no writes at all.
func validateEvent(ev provider.Event) (fixture, error) {
	home := strings.TrimSpace(ev.HomeTeam)
	away := strings.TrimSpace(ev.AwayTeam)
	switch {
	case home == "":
		return fixture{}, fmt.Errorf("%w: missing home_team", ErrSkipEvent)
	case away == "":
		return fixture{}, fmt.Errorf("%w: missing away_team", ErrSkipEvent)
	case ev.CommenceTime == "":
		return fixture{}, fmt.Errorf("%w: missing commence_time", ErrSkipEvent)
	case home == away:
		return fixture{}, fmt.Errorf("%w: home and away are both %q", ErrSkipEvent, home)
	}

	start, err := ParseCommenceTime(ev.CommenceTime)
	if err != nil {
		return fixture{}, fmt.Errorf("%w: %v", ErrSkipEvent, err)
	}

	return fixture{Home: home, Away: away, Start: start}, nil
}

// ParseCommenceTime parses the provider's RFC3339 timestamp ("2025-11-06T01:20:00Z")
// into naive UTC: the instant converted to UTC and truncated to the
// microsecond precision of a Postgres timestamp column.
func ParseCommenceTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("commence_time %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

// BookmakerName prefers the human title, then the machine key, then UnknownBookmaker.
func BookmakerName(b provider.Bookmaker) string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	if k := strings.TrimSpace(b.Key); k != "" {
		return k
	}
	return UnknownBookmaker
}

func headToHead(b provider.Bookmaker) (provider.Market, bool) {
	for _, m := range b.Markets {
		if m.Key == provider.MarketHeadToHead {
			return m, true
		}
	}
	return provider.Market{}, false
}

// SidePrices picks the home (team1) and away (team2) prices from a
// head-to-head outcome list. Outcomes are matched by name first. Any side
// still unresolved falls back to position when there are at least two
// outcomes: outcomes[0] prices team1 and outcomes[1] prices team2. Outcome
// order is not tied to home/away by the provider, so the positional fallback
// is a best-effort guess.
func SidePrices(outcomes []provider.Outcome, home, away string) (team1, team2 provider.Price) {
	byName := make(map[string]provider.Price, len(outcomes))
	for _, o := range outcomes {
		byName[strings.TrimSpace(o.Name)] = o.Price
	}
	team1, team2 = byName[home], byName[away]

	if len(outcomes) >= 2 {
		if !team1.Present {
			team1 = outcomes[0].Price
		}
		if !team2.Present {
			team2 = outcomes[1].Price
		}
	}
	return team1, team2
}

// ParsePrice accepts finite decimal odds strictly above 1.0, rounded to four places.
func ParsePrice(p provider.Price) (decimal.Decimal, error) {
	raw := strings.TrimSpace(p.Raw)
	if len(raw) > maxPriceLen {
		return decimal.Decimal{}, fmt.Errorf("%w: %d-character value", ErrPriceRejected, len(raw))
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not numeric", ErrPriceRejected, raw)
	}
	if exp := d.Exponent(); exp < minPriceExponent || exp > maxPriceExponent {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is out of range", ErrPriceRejected, raw)
	}
	d = d.Round(4)
	if d.LessThanOrEqual(minPrice) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is not above 1.0", ErrPriceRejected, d)
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is out of range", ErrPriceRejected, d)
	}
	return d, nil
}

// bookLine derives b's line for a fixture, or an error wrapping ErrSkipBookmaker
// or ErrPriceRejected.
func bookLine(b provider.Bookmaker, home, away string) (line, error) {
	name := BookmakerName(b)

	market, ok := headToHead(b)
	if !ok {
		return line{}, fmt.Errorf("%w: %s has no %s market", ErrSkipBookmaker, name, provider.MarketHeadToHead)
	}

	p1, p2 := SidePrices(market.Outcomes, home, away)
	if !p1.Present || !p2.Present {
		return line{}, fmt.Errorf("%w: %s is missing a side price", ErrSkipBookmaker, name)
	}

	o1, err := ParsePrice(p1)
	if err != nil {
		return line{}, fmt.Errorf("%s team1: %w", name, err)
	}
	o2, err := ParsePrice(p2)
	if err != nil {
		return line{}, fmt.Errorf("%s team2: %w", name, err)
	}

	return line{Book: name, Team1: o1, Team2: o2}, nil
}
