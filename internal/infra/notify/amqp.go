// Package notify delivers lifecycle events to downstream consumers over
// RabbitMQ. Delivery is best-effort: callers publish after commit and log
// failures without rolling anything back.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"travelcore/internal/pkg/config"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/commands"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	errDialBroker     = errs.New("failed to dial amqp broker")
	errOpenChannel    = errs.New("failed to open amqp channel")
	errDeclareTopic   = errs.New("failed to declare exchange")
	errPublishMessage = errs.New("failed to publish event")
)

// AMQPDispatcher publishes events to a durable topic exchange, routing key =
// event topic. The channel is reopened on the next publish after a broker
// failure.
type AMQPDispatcher struct {
	cfg config.NotifyConfig

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPDispatcher(cfg config.NotifyConfig) *AMQPDispatcher {
	return &AMQPDispatcher{cfg: cfg}
}

var _ commands.NotificationDispatcher = (*AMQPDispatcher)(nil)

func (d *AMQPDispatcher) Publish(ctx context.Context, event commands.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "failed to marshal event")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, d.cfg.Exchange, event.Topic, false, false, pub); err != nil {
		d.reset()
		return errs.Mark(err, errPublishMessage)
	}
	return nil
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}

// channel lazily dials and declares. Caller holds d.mu.
func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}
	d.reset()

	conn, err := amqp.Dial(d.cfg.AMQPURL)
	if err != nil {
		return nil, errs.Mark(err, errDialBroker)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errs.Mark(err, errOpenChannel)
	}
	// Durable so routed messages survive broker restarts.
	if err := ch.ExchangeDeclare(d.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errs.Mark(err, errDeclareTopic)
	}

	d.conn = conn
	d.ch = ch
	return ch, nil
}

func (d *AMQPDispatcher) reset() {
	if d.ch != nil {
		_ = d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
}
