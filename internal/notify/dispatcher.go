package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
)

// Sink delivers one notification over one transport.
type Sink interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// Dispatcher is the Notifier the services publish to. Publish only enqueues;
// a single worker started with Run fans each notification out to every sink.
// When the queue is full the notification is dropped and logged, so a slow
// broker never stalls a booking.
type Dispatcher struct {
	sinks       []Sink
	queue       chan domain.Notification
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(buffer int, sendTimeout time.Duration, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:       sinks,
		queue:       make(chan domain.Notification, buffer),
		sendTimeout: sendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Publish(ctx context.Context, topic string, payload any) {
	n := domain.Notification{
		EventID:   uuid.NewString(),
		Topic:     topic,
		Timestamp: d.now(),
		Payload:   payload,
	}
	select {
	case d.queue <- n:
	default:
		log.Printf("Dispatcher.Publish: queue full, dropping %s event %s", topic, n.EventID)
	}
}

// Run delivers queued notifications until ctx is cancelled, then flushes
// whatever is still buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			d.flush()
			return
		}
	}
}

func (d *Dispatcher) flush() {
	ctx := context.Background()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
		if err := sink.Send(sendCtx, n); err != nil {
			log.Printf("Dispatcher: %s failed to deliver %s event %s: %v", sink.Name(), n.Topic, n.EventID, err)
		}
		cancel()
	}
}
