package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// ErrQueueFull is returned when an event is dropped for lack of room.
var ErrQueueFull = errors.New("notification queue full")

const deliveryTimeout = 5 * time.Second

// NotificationWorker moves ticket events to a slow sink, such as Kafka, on
// its own goroutine. It implements service.EventSink.
type NotificationWorker struct {
	sink    service.EventSink
	queue   chan events.Event
	done    chan struct{}
	logger  *zap.Logger
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewNotificationWorker buffers up to buffer events. sink may be nil, in
// which case events are consumed and discarded.
func NewNotificationWorker(sink service.EventSink, buffer int, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		sink:   sink,
		queue:  make(chan events.Event, max(buffer, 1)),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Handle enqueues event without blocking.
func (w *NotificationWorker) Handle(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (w *NotificationWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event := <-w.queue:
			w.deliver(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.deliver(event)
				default:
					w.logger.Info("notification worker stopped",
						zap.Int64("dropped", w.dropped.Load()),
						zap.Int64("failed", w.failed.Load()))
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (w *NotificationWorker) Wait() {
	<-w.done
}

// Dropped returns how many events did not fit in the queue.
func (w *NotificationWorker) Dropped() int64 {
	return w.dropped.Load()
}

func (w *NotificationWorker) deliver(event events.Event) {
	if w.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := w.sink.Handle(ctx, event); err != nil {
		w.failed.Add(1)
		w.logger.Warn("deliver ticket event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// StartNotificationWorker subscribes notifications to its events and starts
// w. Stop it by cancelling ctx, then call w.Wait.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, w *NotificationWorker) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	go w.Run(ctx)
}
