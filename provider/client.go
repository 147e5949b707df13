// Package provider fetches odds snapshots from The Odds API v4.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	applog "github.com/padraicbc/nflodds/logger"
)

const (
	maxBodyBytes  = 32 << 20
	maxDetailSize = 200

	// MarketHeadToHead is the moneyline market key.
	MarketHeadToHead = "h2h"
)

// ErrNotList is returned when a 2xx body is not a JSON array of events.
var ErrNotList = errors.New("provider returned non-list")

// Error is a non-2xx provider response.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Body)
}

// Config describes one feed: a single sport key on one provider.
type Config struct {
	BaseURL  string
	APIKey   string
	SportKey string
	Regions  string
	Timeout  time.Duration
}

// Client calls the provider's odds endpoint. It never retries.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New returns a client with a bounded timeout.
func New(cfg Config, log *zap.Logger) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:  applog.OrNop(log),
	}
}

// Feed names the feed for locking and logging, e.g. "the-odds-api/americanfootball_nfl".
func (c *Client) Feed() string {
	return "the-odds-api/" + c.cfg.SportKey
}

// Snapshot is one full fetch. Raw holds every array element as received, in
// order; Events holds those that decoded as event objects.
type Snapshot struct {
	Events    []Event
	Raw       []json.RawMessage
	Malformed int
	Remaining string
}

func (c *Client) oddsURL() string {
	q := url.Values{}
	q.Set("apiKey", c.cfg.APIKey)
	q.Set("regions", c.cfg.Regions)
	q.Set("markets", MarketHeadToHead)
	q.Set("oddsFormat", "decimal")
	q.Set("dateFormat", "iso")
	return fmt.Sprintf("%s/sports/%s/odds?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.SportKey), q.Encode())
}

// Fetch downloads and validates a full snapshot before returning any of it.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oddsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("building provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Body: truncate(string(body), maxDetailSize)}
	}

	snap, err := decodeSnapshot(body)
	if err != nil {
		return nil, err
	}
	snap.Remaining = resp.Header.Get("x-requests-remaining")

	c.log.Debug("provider snapshot fetched",
		zap.String("feed", c.Feed()),
		zap.Int("events", len(snap.Events)),
		zap.Int("malformed", snap.Malformed),
		zap.String("requests_remaining", snap.Remaining),
	)
	return snap, nil
}

func decodeSnapshot(body []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotList
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotList, err)
	}

	snap := &Snapshot{Raw: raw, Events: make([]Event, 0, len(raw))}
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal(r, &ev); err != nil {
			snap.Malformed++
			continue
		}
		snap.Events = append(snap.Events, ev)
	}
	return snap, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
