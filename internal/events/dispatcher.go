package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. A failing or panicking handler is logged and does
// not stop delivery to the rest, and never fails the publisher.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish implements Dispatcher.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.listeners[event.Type]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("event without subscribers", zap.String("event_type", string(event.Type)))
		return nil
	}
	for i, handler := range handlers {
		if err := b.deliver(ctx, handler, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Int("handler", i),
				zap.Error(err))
		}
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe implements Dispatcher.
func (b *Bus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}
