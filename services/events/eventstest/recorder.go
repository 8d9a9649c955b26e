// Package eventstest provides an in-memory Publisher for tests.
package eventstest

import (
	"context"
	"sync"

	"pawsewa/services/events"
)

type Recorder struct {
	mu     sync.Mutex
	events []events.Event

	// Err, when set, is returned from every Publish after recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Topics lists the topics that received an event with the given name.
func (r *Recorder) Topics(name string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e.Topic)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
