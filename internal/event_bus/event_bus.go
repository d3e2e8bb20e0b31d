package event_bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Topic identifies a stream of events on the bus, e.g. "docstore.events" or "auth.signed_out".
type Topic string

// Event is the generic envelope delivered to subscribers. Data is kept as any so
// that document changes and auth changes can share the same bus.
type Event struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Data      any
}

// NewEvent creates a new Event with the given context, topic, and payload.
func NewEvent(ctx context.Context, topic Topic, data any) Event {
	return Event{
		ctx:       ctx,
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context returns the context the event was published with.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// EventT is a typed envelope used by typed handlers.
type EventT[T any] struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Data      T
}

// Context returns the context associated with this typed event.
func (e EventT[T]) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

type handler func(Event) error

type subscriber struct {
	id uint64
	h  handler
}

// EventBus is a concurrency-safe synchronous dispatcher. Handlers of a topic run
// sequentially, in subscription order, on the publishing goroutine.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[uint64]handler
	nextID      uint64
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic]map[uint64]handler),
	}
}

// Subscribe registers a handler for the topic and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (eb *EventBus) Subscribe(topic Topic, h func(Event) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID

	if eb.subscribers[topic] == nil {
		eb.subscribers[topic] = make(map[uint64]handler)
	}
	eb.subscribers[topic][id] = handler(h)
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		if handlers := eb.subscribers[topic]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(eb.subscribers, topic)
			}
		}
	}
}

// SubscribeTyped registers a handler that expects payloads of type T. Events whose
// payload is not a T are skipped.
//
// Example:
//
//	unsub := event_bus.SubscribeTyped[event_bus.ViewerSignedOut](bus, event_bus.TopicSignedOut,
//	    func(e event_bus.EventT[event_bus.ViewerSignedOut]) error {
//	        sessions.CloseViewer(e.Data.UserId)
//	        return nil
//	    })
func SubscribeTyped[T any](eb *EventBus, topic Topic, h func(EventT[T]) error) (unsubscribe func()) {
	wrapper := func(e Event) error {
		if e.Data == nil {
			log.Debugf("EventBus: nil data for topic %s, skipping typed handler", topic)
			return nil
		}

		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("EventBus: type mismatch for topic %s: expected %T, got %T",
				topic, *new(T), e.Data)
			return nil
		}

		return h(EventT[T]{
			ctx:       e.ctx,
			Topic:     e.Topic,
			Timestamp: e.Timestamp,
			Data:      payload,
		})
	}
	return eb.Subscribe(topic, wrapper)
}

// SubscriberCount returns the number of handlers registered for the topic.
func (eb *EventBus) SubscriberCount(topic Topic) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[topic])
}

// Publish delivers the event to every handler of its topic. Handler errors and
// recovered panics are collected and returned together; delivery to the remaining
// handlers continues. A cancelled context stops delivery.
func (eb *EventBus) Publish(e Event) error {
	if err := e.Context().Err(); err != nil {
		return fmt.Errorf("event %s: context cancelled before publish: %w", e.Topic, err)
	}

	eb.mu.RLock()
	handlers := make([]subscriber, 0, len(eb.subscribers[e.Topic]))
	for id, h := range eb.subscribers[e.Topic] {
		handlers = append(handlers, subscriber{id, h})
	}
	eb.mu.RUnlock()
	sort.Slice(handlers, func(i, j int) bool { return handlers[i].id < handlers[j].id })

	var errs []error
	for _, s := range handlers {
		if err := e.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during event processing: %w", err))
			break
		}

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic (ID %d) for topic %s: %v", s.id, e.Topic, r)
					log.Error(err)
				}
			}()
			return s.h(e)
		}()

		if err != nil {
			log.Errorf("EventBus: handler error (ID %d) for topic %s: %v", s.id, e.Topic, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("event %s: %d handler(s) failed: %v", e.Topic, len(errs), errs)
	}
	return nil
}
