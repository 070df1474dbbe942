// Package events publishes marketplace domain events to Redis so the Gateway
// can forward them to connected clients (SSE / push).
//
// Publishing is always best-effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types. Each type is also the Redis channel it is published on.
const (
	JobCreated           = "EVENT_JOB_CREATED"
	JobStatusChanged     = "EVENT_JOB_STATUS_CHANGED"
	ApplicantSelected    = "EVENT_APPLICANT_SELECTED"
	ApplicationCreated   = "EVENT_APPLICATION_CREATED"
	ApplicationRetracted = "EVENT_APPLICATION_RETRACTED"
	FeedbackSubmitted    = "EVENT_FEEDBACK_SUBMITTED"
	FeedbackFlagged      = "EVENT_FEEDBACK_FLAGGED"
	ReputationUpdated    = "EVENT_REPUTATION_UPDATED"
)

// Event is the JSON envelope sent on the wire.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	At         time.Time         `json:"at"`
}

// New builds an Event from alternating key/value pairs.
func New(eventType string, kv ...string) Event {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return Event{Type: eventType, Attributes: attrs, At: time.Now().UTC()}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// RedisPublisher publishes on the channel named after the event type.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher returns a RedisPublisher.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}
	if err := p.rdb.Publish(ctx, e.Type, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Nop drops every event. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes e and logs (never returns) a failure.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed", "type", e.Type, "err", err)
	}
}
