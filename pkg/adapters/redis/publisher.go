// Package redis streams run events to Redis and guards state files with
// distributed locks.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultStreamPrefix is used when no prefix option is given.
const DefaultStreamPrefix = "gantry:events"

// EventPublisher appends every run event to the stream <prefix>:<pipeline_id>.
type EventPublisher struct {
	client *backend.Client
	prefix string
	maxLen int64
	newID  func() string
}

var _ domain.Observer = (*EventPublisher)(nil)

type Option func(*EventPublisher)

// WithStreamPrefix sets the stream key prefix.
func WithStreamPrefix(prefix string) Option {
	return func(p *EventPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithMaxLen caps each stream at roughly n entries. Zero keeps everything.
func WithMaxLen(n int64) Option {
	return func(p *EventPublisher) {
		p.maxLen = n
	}
}

// NewPublisher creates a publisher connected to address.
func NewPublisher(address, password string, db int, opts ...Option) *EventPublisher {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewPublisherFromClient(rdb, opts...)
}

// NewPublisherFromClient creates a publisher from an existing client.
func NewPublisherFromClient(client *backend.Client, opts ...Option) *EventPublisher {
	p := &EventPublisher{
		client: client,
		prefix: DefaultStreamPrefix,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream returns the stream key of a pipeline.
func (p *EventPublisher) Stream(pipelineID string) string {
	return p.prefix + ":" + pipelineID
}

// Close closes the underlying client.
func (p *EventPublisher) Close() error {
	return p.client.Close()
}

func (p *EventPublisher) OnPipelineStarted(ctx context.Context, e *domain.PipelineEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{
		"status":     string(e.State.Status),
		"slot_count": len(e.State.Slots),
	})
}

func (p *EventPublisher) OnPipelineCompleted(ctx context.Context, e *domain.PipelineEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{"status": string(e.State.Status)})
}

func (p *EventPublisher) OnPipelineFailed(ctx context.Context, e *domain.PipelineEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{
		"status": string(e.State.Status),
		"error":  e.Error,
	})
}

func (p *EventPublisher) OnSlotStarted(ctx context.Context, e *domain.SlotEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{"slot_id": e.SlotID, "agent_id": e.AgentID})
}

func (p *EventPublisher) OnSlotCompleted(ctx context.Context, e *domain.SlotEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{"slot_id": e.SlotID})
}

func (p *EventPublisher) OnSlotFailed(ctx context.Context, e *domain.SlotEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{"slot_id": e.SlotID, "error": e.Error})
}

func (p *EventPublisher) OnGateCheckCompleted(ctx context.Context, e *domain.GateEvent) error {
	results, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("failed to encode gate results: %w", err)
	}
	return p.publish(ctx, e.EventBase, map[string]any{
		"slot_id": e.SlotID,
		"phase":   string(e.Phase),
		"passed":  e.Passed(),
		"results": string(results),
	})
}

func (p *EventPublisher) OnStatusChanged(ctx context.Context, e *domain.StatusEvent) error {
	return p.publish(ctx, e.EventBase, map[string]any{
		"old_status": string(e.Old),
		"new_status": string(e.New),
	})
}

func (p *EventPublisher) publish(ctx context.Context, base domain.EventBase, fields map[string]any) error {
	fields["event"] = string(base.Type)
	fields["event_id"] = p.newID()
	fields["pipeline_id"] = base.PipelineID
	fields["timestamp"] = base.Timestamp.UTC().Format(time.RFC3339Nano)

	args := &backend.XAddArgs{
		Stream: p.Stream(base.PipelineID),
		Values: fields,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis error publishing %s: %w", base.Type, err)
	}
	return nil
}
