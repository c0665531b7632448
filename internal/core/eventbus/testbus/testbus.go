// Package testbus runs a real EventBus for tests and records what it
// delivers.
package testbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/okr/internal/core/eventbus"
)

// DefaultWait bounds how long assertions wait for asynchronous delivery.
const DefaultWait = 500 * time.Millisecond

type delivery struct {
	event   eventbus.Event
	payload any
}

// Bus is a started EventBus that records every delivered event.
type Bus struct {
	*eventbus.EventBus

	mu      sync.Mutex
	log     []delivery
	changed chan struct{}
}

// New starts a recording bus that stops when the test ends.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{
		EventBus: eventbus.New(64),
		changed:  make(chan struct{}, 1),
	}
	tb.SubscribeAll(func(e eventbus.Event, p any) {
		tb.mu.Lock()
		tb.log = append(tb.log, delivery{event: e, payload: p})
		tb.mu.Unlock()

		select {
		case tb.changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go tb.Start(ctx)
	t.Cleanup(cancel)

	return tb
}

// Count returns how many events of one type were delivered so far.
func (tb *Bus) Count(event eventbus.Event) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	n := 0
	for _, d := range tb.log {
		if d.event == event {
			n++
		}
	}
	return n
}

// Await blocks until at least n events of one type were delivered or wait
// elapses, and reports whether the count was reached.
func (tb *Bus) Await(event eventbus.Event, n int, wait time.Duration) bool {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for tb.Count(event) < n {
		select {
		case <-tb.changed:
		case <-deadline.C:
			return tb.Count(event) >= n
		}
	}
	return true
}

// AssertPublished fails the test unless event is delivered within DefaultWait.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if !tb.Await(event, 1, DefaultWait) {
		t.Errorf("expected event %q to be published, but it was not", event)
	}
}

// AssertNotPublished fails the test if event is delivered within wait.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event, wait time.Duration) {
	t.Helper()
	if tb.Await(event, 1, wait) {
		t.Errorf("expected event %q to NOT be published, but it was", event)
	}
}

// Payloads returns the delivered payloads of one event type in order.
func Payloads[T any](tb *Bus, event eventbus.Event) []T {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	var out []T
	for _, d := range tb.log {
		if p, ok := d.payload.(T); ok && d.event == event {
			out = append(out, p)
		}
	}
	return out
}
