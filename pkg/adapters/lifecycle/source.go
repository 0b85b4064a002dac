// Package lifecycle exposes store change events as a lifecycle.Source so they can be
// supervised next to other event producers.
package lifecycle

import (
	"context"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/strata/pkg/core"
)

// SourceOption configures a store event source.
type SourceOption func(*storeSource)

// WithTypes forwards only events of the given types. Without it every event passes.
func WithTypes(types ...core.EventType) SourceOption {
	return func(s *storeSource) {
		s.types = append(s.types, types...)
	}
}

// WithBuffer sets the capacity of the output channel.
func WithBuffer(n int) SourceOption {
	return func(s *storeSource) {
		if n > 0 {
			s.buffer = n
		}
	}
}

type storeSource struct {
	events <-chan core.Event
	types  []core.EventType
	buffer int
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source over a store's Watch channel.
// core.Event satisfies lifecycle.Event through its String method.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &storeSource{events: events}
	for _, opt := range opts {
		opt(s)
	}
	s.out = make(chan lifecycle.Event, s.buffer)
	return s
}

func (s *storeSource) Events() <-chan lifecycle.Event { return s.out }

func (s *storeSource) wants(e core.Event) bool {
	return len(s.types) == 0 || slices.Contains(s.types, e.Type)
}

// Start forwards matching events until ctx is done or the store channel closes, then
// closes the output channel.
func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var (
				e  core.Event
				ok bool
			)
			select {
			case <-ctx.Done():
				return nil
			case e, ok = <-s.events:
			}
			if !ok {
				return nil
			}
			if !s.wants(e) {
				continue
			}
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}
