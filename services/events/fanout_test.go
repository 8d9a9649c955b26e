package events_test

import (
	"context"
	"errors"
	"testing"

	"pawsewa/services/events"
	"pawsewa/services/events/eventstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutContinuesPastFailingSink(t *testing.T) {
	broken := &eventstest.Recorder{Err: errors.New("broker down")}
	healthy := &eventstest.Recorder{}
	f := events.NewFanout(nil,
		events.Sink{Name: "amqp", Publisher: broken},
		events.Sink{Name: "websocket", Publisher: healthy},
	)

	err := f.Publish(context.Background(), events.Event{Name: events.StatusChange, Topic: "request:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amqp")
	assert.Len(t, healthy.Events(), 1)
	assert.Len(t, broken.Events(), 1)
}

func TestEmitSwallowsErrors(t *testing.T) {
	rec := &eventstest.Recorder{Err: errors.New("nope")}
	assert.NotPanics(t, func() {
		events.Emit(context.Background(), rec, events.StatusChange, nil, "request:1", "user:2")
	})
	assert.Equal(t, []string{"request:1", "user:2"}, rec.Topics(events.StatusChange))

	events.Emit(context.Background(), nil, events.StatusChange, nil, "request:1")
}

func TestEmitSurvivesCancelledTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	p := publisherFunc(func(ctx context.Context, e events.Event) error {
		seen = ctx.Err()
		return nil
	})
	events.Emit(ctx, p, events.StatusChange, nil, "request:1")
	assert.NoError(t, seen)
}

type publisherFunc func(ctx context.Context, e events.Event) error

func (f publisherFunc) Publish(ctx context.Context, e events.Event) error { return f(ctx, e) }
