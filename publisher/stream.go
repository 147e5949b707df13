// Package publisher announces completed ingestion runs on a Redis stream.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/padraicbc/nflodds/ingest"
)

// streamMaxLen caps each stream; trimming is approximate.
const streamMaxLen = 1000

// Connect opens a Redis client from a redis:// URL and pings it.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 5 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 5 * time.Second
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// StreamPublisher writes run summaries to odds.ingested.{sport_key}.
type StreamPublisher struct {
	redis     *redis.Client
	streamKey string
}

var _ ingest.Notifier = (*StreamPublisher)(nil)

// NewStreamPublisher creates a publisher for one feed's sport key.
func NewStreamPublisher(client *redis.Client, sportKey string) *StreamPublisher {
	return &StreamPublisher{
		redis:     client,
		streamKey: StreamKey(sportKey),
	}
}

// StreamKey returns the stream a sport's run summaries go to.
func StreamKey(sportKey string) string {
	return fmt.Sprintf("odds.ingested.%s", sportKey)
}

// Notify appends s to the stream as a single JSON "data" field.
func (p *StreamPublisher) Notify(ctx context.Context, s *ingest.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	err = p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id": s.RunID,
			"data":   string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to stream %s: %w", p.streamKey, err)
	}
	return nil
}
