package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/larp-planner/internal/config"
	"github.com/iliyamo/larp-planner/internal/model"
)

// channel is the slice of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a function closing both the
// channel and its connection.
type dialFunc func(url string) (channel, func(), error)

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

// Publisher sends planning messages to RabbitMQ.  A connection is opened
// per publish; callers treat failures as non-fatal.
type Publisher struct {
	cfg  config.QueueConfig
	dial dialFunc
	now  func() time.Time
}

// NewPublisher returns a Publisher for the queues named in cfg.
func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{cfg: cfg, dial: dialAMQP, now: time.Now}
}

// ConflictsDetected publishes one ConflictDetectedEvent per conflict.  It
// satisfies scheduler.Notifier.
func (p *Publisher) ConflictsDetected(ctx context.Context, larpID uint64, conflicts []model.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	bodies := make([][]byte, 0, len(conflicts))
	for _, c := range conflicts {
		b, err := json.Marshal(NewConflictDetectedEvent(c))
		if err != nil {
			log.Printf("rabbitmq: marshal conflict %d failed: %v", c.ID, err)
			return err
		}
		bodies = append(bodies, b)
	}
	return p.publish(ctx, p.cfg.ConflictQueue, bodies...)
}

// RequestRescan enqueues a re-scan of larpID for the worker.
func (p *Publisher) RequestRescan(ctx context.Context, larpID, requestedBy uint64) error {
	b, err := json.Marshal(RescanRequested{
		LarpID:      larpID,
		RequestedBy: requestedBy,
		RequestedAt: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return p.publish(ctx, p.cfg.RescanQueue, b)
}

func (p *Publisher) publish(ctx context.Context, queue string, bodies ...[]byte) error {
	ch, closeFn, err := p.dial(p.cfg.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer closeFn()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare %s failed: %v", queue, err)
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	for _, body := range bodies {
		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    p.now().UTC(),
			Body:         body,
		}
		if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
			log.Printf("rabbitmq: publish to %s failed: %v", queue, err)
			return fmt.Errorf("publish %s: %w", queue, err)
		}
	}
	return nil
}
