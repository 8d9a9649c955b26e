package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pawsewa/logger"
	"pawsewa/metrics"
)

// ErrQueueFull is returned when a queued sink drops an event.
var ErrQueueFull = errors.New("events: sink queue full")

// deliverTimeout bounds one hand-off to the wrapped publisher.
const deliverTimeout = 5 * time.Second

// Queue hands events to a slow publisher, such as a broker, from one goroutine.
// Publish never blocks; a full queue drops the event.
type Queue struct {
	name    string
	sink    Publisher
	channel chan Event
	metrics *metrics.Metrics
	dropped atomic.Int64
	done    chan struct{}
}

func NewQueue(name string, sink Publisher, buffer int, m *metrics.Metrics) *Queue {
	if buffer <= 0 {
		buffer = 256
	}
	return &Queue{
		name:    name,
		sink:    sink,
		channel: make(chan Event, buffer),
		metrics: m,
		done:    make(chan struct{}),
	}
}

func (q *Queue) Publish(_ context.Context, e Event) error {
	select {
	case q.channel <- e:
		return nil
	default:
		q.metrics.BroadcastDropped()
		if q.dropped.Add(1)%100 == 1 {
			logger.Warning(fmt.Sprintf("%s queue full, dropping events", q.name))
		}
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is buffered.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case e := <-q.channel:
			q.deliver(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-q.channel:
					q.deliver(e)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has flushed and returned.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := q.sink.Publish(ctx, e); err != nil {
		q.metrics.BroadcastFailed(q.name)
		logger.Debug(fmt.Sprintf("sink %s rejected %s: %v", q.name, e.Name, err))
	}
}
