// Package events is an in-process pub/sub bus for reservation lifecycle events.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	ReservationCreated       = "reservation.created"
	ReservationStatusChanged = "reservation.status_changed"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// ReservationPayload is the body of both reservation events.
type ReservationPayload struct {
	ReservationID int64  `json:"reservation_id"`
	TableID       int64  `json:"table_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Duration      int    `json:"duration"`
	Status        string `json:"status"`
	Previous      string `json:"previous,omitempty"`
	Override      bool   `json:"override,omitempty"`
}

// NewReservationEvent marshals p into an event of the given type.
func NewReservationEvent(eventType string, p ReservationPayload) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: body, CreatedAt: time.Now()}, nil
}

// Reservation decodes the payload of a reservation event.
func (e Event) Reservation() (ReservationPayload, error) {
	var p ReservationPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Handler reacts to an event.
type Handler func(event Event) error

// ErrorHook receives handler failures. Publish never propagates them.
type ErrorHook func(event Event, err error)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	onError     ErrorHook
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// OnError installs a hook for handler failures.
func (b *Bus) OnError(hook ErrorHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = hook
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	hook := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		if err := handler(event); err != nil && hook != nil {
			hook(event, err)
		}
	}
}
