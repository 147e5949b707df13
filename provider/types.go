package provider

import (
	"bytes"
	"encoding/json"
)

// Event is one fixture in a snapshot. Every field is optional on the wire;
// absent or null strings decode to "".
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	CommenceTime string      `json:"commence_time"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker carries a human Title and a machine Key; either may be missing.
type Bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update"`
	Markets    []Market `json:"markets"`
}

// Market is one priced market such as "h2h", "spreads" or "totals".
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is a single selection within a market.
type Outcome struct {
	Name  string `json:"name"`
	Price Price  `json:"price"`
}

// Price keeps the provider's price text as received. Present is false when
// the key was absent or null. Numbers and strings are kept verbatim; any other
// JSON value is kept as raw text so it fails numeric parsing later instead of
// failing the whole event decode.
type Price struct {
	Raw     string
	Present bool
}

// P builds a present Price, for fixtures and callers constructing events.
func P(raw string) Price { return Price{Raw: raw, Present: true} }

func (p *Price) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Price{Raw: s, Present: true}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err == nil {
		*p = Price{Raw: n.String(), Present: true}
		return nil
	}

	*p = Price{Raw: string(data), Present: true}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Present {
		return []byte("null"), nil
	}
	if json.Valid([]byte(p.Raw)) {
		return []byte(p.Raw), nil
	}
	return json.Marshal(p.Raw)
}
