package events

import (
	"context"
	"errors"
	"fmt"

	"pawsewa/logger"
	"pawsewa/metrics"
)

// Sink is a named publisher inside a Fanout.
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout delivers to every sink. One failing sink does not stop the others.
type Fanout struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

func NewFanout(m *metrics.Metrics, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, metrics: m}
}

func (f *Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publisher.Publish(ctx, e); err != nil {
			f.metrics.BroadcastFailed(s.Name)
			logger.Debug(fmt.Sprintf("sink %s rejected %s: %v", s.Name, e.Name, err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
