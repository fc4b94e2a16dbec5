// Package publisher broadcasts projection transitions on a Redis stream.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Alias1177/Projector/models"
)

// DefaultStream is the stream transitions are appended to
const DefaultStream = "projections.transitions"

// StreamPublisher publishes projection transitions to a Redis stream
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher creates a new stream publisher; the stream is trimmed
// to roughly maxLen entries when maxLen > 0
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// OnTransition appends the transition to the stream
func (p *StreamPublisher) OnTransition(ctx context.Context, t models.Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling transition: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"player":    t.Record.Player,
			"game_date": models.FormatDate(t.Record.GameDate),
			"from":      string(t.From),
			"status":    string(t.To),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	return p.client.XAdd(ctx, args).Err()
}
