// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Game event types
const (
	GameStarted       Type = "game_started"
	GamePaused        Type = "game_paused"
	GameResumed       Type = "game_resumed"
	GameReset         Type = "game_reset"
	CountdownFinished Type = "countdown_finished"
	BrickDestroyed    Type = "brick_destroyed"
	LifeLost          Type = "life_lost"
	GameEnded         Type = "game_ended"
	FieldResized      Type = "field_resized"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription is returned by Subscribe; Cancel removes the handler
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})
	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.Unsubscribe(eventType, id) },
	}
}

// Unsubscribe removes the handler registered under id. Unknown ids are ignored.
func (b *Bus) Unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// copy so a Publish iterating the old slice is not disturbed
		next := make([]subscriber, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, eventType)
		} else {
			b.handlers[eventType] = next
		}
		return
	}
}

// Publish sends an event to all subscribed handlers synchronously
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// SubscriberCount returns the number of handlers for eventType
func (b *Bus) SubscriberCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Specific event implementations

// StateEvent reports a state machine transition
type StateEvent struct {
	BaseEvent
	Score int
	Lives int
}

// NewStateEvent creates a new state event
func NewStateEvent(eventType Type, source interface{}, score, lives int) *StateEvent {
	return &StateEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Score: score,
		Lives: lives,
	}
}

// BrickEvent contains information about a destroyed brick
type BrickEvent struct {
	BaseEvent
	BrickID uint64
	Column  int
	Row     int
	Score   int
}

// NewBrickEvent creates a new brick event
func NewBrickEvent(source interface{}, brickID uint64, column, row, score int) *BrickEvent {
	return &BrickEvent{
		BaseEvent: BaseEvent{
			EventType: BrickDestroyed,
			Source:    source,
		},
		BrickID: brickID,
		Column:  column,
		Row:     row,
		Score:   score,
	}
}

// LifeEvent is published when the ball crosses the death line
type LifeEvent struct {
	BaseEvent
	Remaining int
}

// NewLifeEvent creates a new life event
func NewLifeEvent(source interface{}, remaining int) *LifeEvent {
	return &LifeEvent{
		BaseEvent: BaseEvent{
			EventType: LifeLost,
			Source:    source,
		},
		Remaining: remaining,
	}
}

// EndEvent carries the terminal outcome of a session
type EndEvent struct {
	BaseEvent
	Won   bool
	Score int
}

// NewEndEvent creates a new end-of-game event
func NewEndEvent(source interface{}, won bool, score int) *EndEvent {
	return &EndEvent{
		BaseEvent: BaseEvent{
			EventType: GameEnded,
			Source:    source,
		},
		Won:   won,
		Score: score,
	}
}

// ResizeEvent is published after the play field changed size
type ResizeEvent struct {
	BaseEvent
	Width  float64
	Height float64
}

// NewResizeEvent creates a new resize event
func NewResizeEvent(source interface{}, width, height float64) *ResizeEvent {
	return &ResizeEvent{
		BaseEvent: BaseEvent{
			EventType: FieldResized,
			Source:    source,
		},
		Width:  width,
		Height: height,
	}
}
