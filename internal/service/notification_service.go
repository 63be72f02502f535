package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

// EventSink receives every ticket event, e.g. the Kafka forwarder.
type EventSink interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationService logs ticket events and forwards them to a sink.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       EventSink
	logger     *zap.Logger
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(dispatcher events.Dispatcher, sink EventSink, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("CommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if n.sink == nil {
		return nil
	}
	return n.sink.Handle(ctx, event)
}
