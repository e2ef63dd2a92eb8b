// Package publish broadcasts a board's firings over Redis Pub/Sub so that
// dashboards and other simulators can follow a run live.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/storyboard/internal/engine"
	"github.com/roach88/storyboard/internal/timeline"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRunStarted   EventType = "run.started"
	EventTypeStoryFired   EventType = "story.fired"
	EventTypeRunCompleted EventType = "run.completed"
)

// Event is the JSON payload published on a run's channel.
type Event struct {
	Type       EventType          `json:"type"`
	RunID      string             `json:"run_id"`
	Seq        int64              `json:"seq,omitempty"`
	Tick       timeline.Tick      `json:"tick"`
	StoryID    string             `json:"story_id,omitempty"`
	Policy     string             `json:"policy,omitempty"`
	Vehicles   []string           `json:"vehicles,omitempty"`
	Actuations []engine.Actuation `json:"actuations,omitempty"`
	Data       map[string]any     `json:"data,omitempty"`
}

// Channel returns the Pub/Sub channel of a run.
func Channel(runID string) string {
	return fmt.Sprintf("storyboard:%s:firings", runID)
}

// Publisher publishes a run's events to Redis. It implements
// engine.FiringObserver.
type Publisher struct {
	ctx    context.Context
	client *redis.Client
	runID  string
	logger *slog.Logger
}

// Connect parses a redis:// URL, checks the server answers and returns a
// publisher for runID. ctx bounds every publish.
func Connect(ctx context.Context, redisURL, runID string, logger *slog.Logger) (*Publisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("connected to redis", "addr", opt.Addr, "channel", Channel(runID))
	return NewPublisher(ctx, client, runID, logger), nil
}

// NewPublisher wraps an existing client.
func NewPublisher(ctx context.Context, client *redis.Client, runID string, logger *slog.Logger) *Publisher {
	return &Publisher{ctx: ctx, client: client, runID: runID, logger: logger}
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// ObserveFiring implements engine.FiringObserver. A publish failure is
// returned to the board, which logs it as a step warning.
func (p *Publisher) ObserveFiring(f engine.Firing) error {
	return p.publish(Event{
		Type:       EventTypeStoryFired,
		RunID:      f.RunID,
		Seq:        f.Seq,
		Tick:       f.Tick,
		StoryID:    f.StoryID,
		Policy:     string(f.Policy),
		Vehicles:   f.Vehicles(),
		Actuations: f.Actuations,
	})
}

// RunStarted announces a run before its first step.
func (p *Publisher) RunStarted(scenario string, stories int) error {
	return p.publish(Event{
		Type:  EventTypeRunStarted,
		RunID: p.runID,
		Data: map[string]any{
			"scenario": scenario,
			"stories":  stories,
		},
	})
}

// RunCompleted announces the end of a run.
func (p *Publisher) RunCompleted(last timeline.Tick, firings int) error {
	return p.publish(Event{
		Type:  EventTypeRunCompleted,
		RunID: p.runID,
		Tick:  last,
		Data: map[string]any{
			"firings": firings,
		},
	})
}

func (p *Publisher) publish(event Event) error {
	channel := Channel(p.runID)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(p.ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published",
		"channel", channel,
		"event_type", event.Type,
		"seq", event.Seq,
	)
	return nil
}

var _ engine.FiringObserver = (*Publisher)(nil)
