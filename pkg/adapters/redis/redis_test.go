package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/gantry/pkg/adapters/redis"
	"github.com/aretw0/gantry/pkg/domain"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *backend.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEventPublisher_StreamsEvents(t *testing.T) {
	client := newClient(t)
	pub := redis.NewPublisherFromClient(client)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.OnSlotStarted(ctx, &domain.SlotEvent{
		EventBase: domain.EventBase{Timestamp: ts, Type: domain.EventSlotStarted, PipelineID: "feature"},
		SlotID:    "A",
		AgentID:   "coder",
	}))
	require.NoError(t, pub.OnGateCheckCompleted(ctx, &domain.GateEvent{
		EventBase: domain.EventBase{Timestamp: ts, Type: domain.EventGateCheckCompleted, PipelineID: "feature"},
		SlotID:    "A",
		Phase:     domain.PhasePost,
		Results:   []domain.GateCheckResult{{Condition: "tests_pass", Passed: false}},
	}))

	assert.Equal(t, "gantry:events:feature", pub.Stream("feature"))

	msgs, err := client.XRange(ctx, pub.Stream("feature"), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first := msgs[0].Values
	assert.Equal(t, "slot_started", first["event"])
	assert.Equal(t, "feature", first["pipeline_id"])
	assert.Equal(t, "A", first["slot_id"])
	assert.Equal(t, "coder", first["agent_id"])
	assert.Equal(t, "2026-03-01T12:00:00Z", first["timestamp"])
	assert.NotEmpty(t, first["event_id"])

	second := msgs[1].Values
	assert.Equal(t, "post", second["phase"])
	assert.Equal(t, "0", second["passed"])
	assert.Contains(t, second["results"], "tests_pass")
}

func TestEventPublisher_PrefixAndMaxLen(t *testing.T) {
	client := newClient(t)
	pub := redis.NewPublisherFromClient(client, redis.WithStreamPrefix("ci"), redis.WithMaxLen(100))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, pub.OnStatusChanged(ctx, &domain.StatusEvent{
			EventBase: domain.EventBase{Type: domain.EventStatusChanged, PipelineID: "p"},
			Old:       domain.PipelineValidated,
			New:       domain.PipelineRunning,
		}))
	}

	n, err := client.XLen(ctx, "ci:p").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLocker(t *testing.T) {
	client := newClient(t)
	locker := redis.NewLocker(client, "gantry:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "state.yaml", time.Minute)
	require.NoError(t, err)

	held, err := client.Exists(ctx, locker.Key("state.yaml")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)

	short, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "state.yaml", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock, err = locker.Lock(ctx, "state.yaml", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
