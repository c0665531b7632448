package eventbus

import (
	"context"
	"slices"
	"sync"
)

// Event names a bus event.
type Event string

const (
	EventCommentAdded          Event = "comment.added"
	EventConfigReloaded        Event = "config.reloaded"
	EventKeyResultCheckedIn    Event = "key_result.checked_in"
	EventKeyResultCreated      Event = "key_result.created"
	EventKeyResultDeleted      Event = "key_result.deleted"
	EventKeyResultUpdated      Event = "key_result.updated"
	EventNotificationPublished Event = "notification.published"
	EventObjectiveCreated      Event = "objective.created"
	EventObjectiveDeleted      Event = "objective.deleted"
	EventObjectiveUpdated      Event = "objective.updated"
	EventPeriodMissed          Event = "period.missed"
	EventUserUpdated           Event = "user.updated"
)

// AllEvents returns every event name, sorted.
func AllEvents() []Event {
	out := make([]Event, 0, len(Events))
	for name := range Events {
		out = append(out, Event(name))
	}
	slices.Sort(out)
	return out
}

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers published events to subscribers on a single dispatch
// goroutine, in publish order. Publishing never blocks: when the buffer is
// full the event is dropped and the OnDrop hooks fire.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu       sync.RWMutex
	handlers map[Event][]func(any)
	catchAll []func(Event, any)
}

// New creates a bus with the given buffer size.
func New(size int) *EventBus {
	return &EventBus{
		ch:       make(chan envelope, size),
		handlers: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

// Drain dispatches every buffered event on the calling goroutine and
// returns once the buffer is empty. Short-lived commands call it instead of
// Start before exiting.
func (bus *EventBus) Drain() {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	handlers := slices.Clone(bus.handlers[env.event])
	all := slices.Clone(bus.catchAll)
	bus.mu.RUnlock()

	for _, fn := range handlers {
		bus.call(env, func() { fn(env.payload) })
	}
	for _, fn := range all {
		bus.call(env, func() { fn(env.event, env.payload) })
	}
}

func (bus *EventBus) call(env envelope, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(env.event, env.payload, r)
		}
	}()
	fn()
}

func subscribe[T any](bus *EventBus, event Event, fn func(T)) {
	bus.mu.Lock()
	bus.handlers[event] = append(bus.handlers[event], func(p any) { fn(p.(T)) })
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

// SubscribeAll registers fn for every event. It runs after the typed
// subscribers of each event.
func (bus *EventBus) SubscribeAll(fn func(Event, any)) {
	bus.mu.Lock()
	bus.catchAll = append(bus.catchAll, fn)
	bus.mu.Unlock()
	for _, e := range AllEvents() {
		bus.runOnSubscribe(e)
	}
}

func (bus *EventBus) PublishCommentAdded(p CommentAddedPayload) {
	bus.send(EventCommentAdded, p)
}

func (bus *EventBus) SubscribeCommentAdded(fn func(CommentAddedPayload)) {
	subscribe(bus, EventCommentAdded, fn)
}

func (bus *EventBus) PublishConfigReloaded(p ConfigReloadedPayload) {
	bus.send(EventConfigReloaded, p)
}

func (bus *EventBus) SubscribeConfigReloaded(fn func(ConfigReloadedPayload)) {
	subscribe(bus, EventConfigReloaded, fn)
}

func (bus *EventBus) PublishKeyResultCheckedIn(p KeyResultCheckedInPayload) {
	bus.send(EventKeyResultCheckedIn, p)
}

func (bus *EventBus) SubscribeKeyResultCheckedIn(fn func(KeyResultCheckedInPayload)) {
	subscribe(bus, EventKeyResultCheckedIn, fn)
}

func (bus *EventBus) PublishKeyResultCreated(p KeyResultCreatedPayload) {
	bus.send(EventKeyResultCreated, p)
}

func (bus *EventBus) SubscribeKeyResultCreated(fn func(KeyResultCreatedPayload)) {
	subscribe(bus, EventKeyResultCreated, fn)
}

func (bus *EventBus) PublishKeyResultDeleted(p KeyResultDeletedPayload) {
	bus.send(EventKeyResultDeleted, p)
}

func (bus *EventBus) SubscribeKeyResultDeleted(fn func(KeyResultDeletedPayload)) {
	subscribe(bus, EventKeyResultDeleted, fn)
}

func (bus *EventBus) PublishKeyResultUpdated(p KeyResultUpdatedPayload) {
	bus.send(EventKeyResultUpdated, p)
}

func (bus *EventBus) SubscribeKeyResultUpdated(fn func(KeyResultUpdatedPayload)) {
	subscribe(bus, EventKeyResultUpdated, fn)
}

func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	subscribe(bus, EventNotificationPublished, fn)
}

func (bus *EventBus) PublishObjectiveCreated(p ObjectiveCreatedPayload) {
	bus.send(EventObjectiveCreated, p)
}

func (bus *EventBus) SubscribeObjectiveCreated(fn func(ObjectiveCreatedPayload)) {
	subscribe(bus, EventObjectiveCreated, fn)
}

func (bus *EventBus) PublishObjectiveDeleted(p ObjectiveDeletedPayload) {
	bus.send(EventObjectiveDeleted, p)
}

func (bus *EventBus) SubscribeObjectiveDeleted(fn func(ObjectiveDeletedPayload)) {
	subscribe(bus, EventObjectiveDeleted, fn)
}

func (bus *EventBus) PublishObjectiveUpdated(p ObjectiveUpdatedPayload) {
	bus.send(EventObjectiveUpdated, p)
}

func (bus *EventBus) SubscribeObjectiveUpdated(fn func(ObjectiveUpdatedPayload)) {
	subscribe(bus, EventObjectiveUpdated, fn)
}

func (bus *EventBus) PublishPeriodMissed(p PeriodMissedPayload) {
	bus.send(EventPeriodMissed, p)
}

func (bus *EventBus) SubscribePeriodMissed(fn func(PeriodMissedPayload)) {
	subscribe(bus, EventPeriodMissed, fn)
}

func (bus *EventBus) PublishUserUpdated(p UserUpdatedPayload) {
	bus.send(EventUserUpdated, p)
}

func (bus *EventBus) SubscribeUserUpdated(fn func(UserUpdatedPayload)) {
	subscribe(bus, EventUserUpdated, fn)
}
