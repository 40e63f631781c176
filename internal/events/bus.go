package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names an action or a confirmation event
type EventType string

// ErrActionFailed is returned by Request when a failure event answers the action
var ErrActionFailed = errors.New("action failed")

// ErrNoHandler is returned by Request when nothing serves the action type
var ErrNoHandler = errors.New("no handler for action")

// Event is an action dispatched on the bus or a confirmation of one.
// RequestID correlates confirmations with the action that caused them.
type Event struct {
	Type      EventType
	RequestID string
	Payload   interface{}
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType) *Event {
	return &Event{
		Type:      eventType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// WithPayload sets the event payload (chainable)
func (e *Event) WithPayload(payload interface{}) *Event {
	e.Payload = payload
	return e
}

// Reply creates a confirmation event carrying this event's request id
func (e *Event) Reply(eventType EventType) *Event {
	reply := NewEvent(eventType)
	reply.RequestID = e.RequestID
	return reply
}

// String returns a data value as a string, "" when missing
func (e *Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Handler handles an event
type Handler func(ctx context.Context, event *Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches actions to handlers and confirmations back to requesters
type Bus struct {
	handlers    map[EventType][]subscription
	allHandlers []subscription
	nextID      uint64
	mu          sync.RWMutex
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
	}
}

// Subscribe adds a handler for a specific event type and returns a function
// that removes it
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[eventType] = slices.DeleteFunc(b.handlers[eventType], func(s subscription) bool {
			return s.id == id
		})
		if len(b.handlers[eventType]) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// SubscribeAll adds a handler that receives all events
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.allHandlers = append(b.allHandlers, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allHandlers = slices.DeleteFunc(b.allHandlers, func(s subscription) bool {
			return s.id == id
		})
	}
}

// HasHandler reports whether any handler is subscribed to eventType
func (b *Bus) HasHandler(eventType EventType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers, each on its own goroutine
func (b *Bus) Publish(ctx context.Context, event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	slog.Debug("Publishing event", "type", event.Type, "request_id", event.RequestID)

	for _, sub := range b.handlers[event.Type] {
		go sub.handler(ctx, event)
	}
	for _, sub := range b.allHandlers {
		go sub.handler(ctx, event)
	}
}

// Request dispatches action and waits for exactly one success or failure
// event carrying the action's request id. A failure event yields the event
// together with ErrActionFailed.
func (b *Bus) Request(ctx context.Context, action *Event, success, failure []EventType) (*Event, error) {
	if !b.HasHandler(action.Type) {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, action.Type)
	}
	if action.RequestID == "" {
		action.RequestID = uuid.NewString()
	}

	result := make(chan *Event, 1)
	deliver := func(_ context.Context, event *Event) {
		if event.RequestID != action.RequestID {
			return
		}
		select {
		case result <- event:
		default:
		}
	}

	// Subscribe before dispatching so a fast confirmation is not missed
	var unsubscribe []func()
	for _, eventType := range append(append([]EventType{}, success...), failure...) {
		unsubscribe = append(unsubscribe, b.Subscribe(eventType, deliver))
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	b.Publish(ctx, action)

	select {
	case event := <-result:
		if slices.Contains(failure, event.Type) {
			return event, fmt.Errorf("%w: %s", ErrActionFailed, event.Type)
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
