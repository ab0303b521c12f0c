package mocks

import (
	"context"
	"sync"

	"github.com/pipecraft/campd/pkg/eventbus"
)

// CapturingPublisher records published events for assertions.
type CapturingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *CapturingPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

// Events returns a copy of everything published so far.
func (p *CapturingPublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}
