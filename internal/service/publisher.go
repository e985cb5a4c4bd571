package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/train-station/internal/config"
	"github.com/iliyamo/train-station/internal/queue"
)

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, ev queue.OrderCreatedEvent) error
}

// AMQPPublisher publishes each event on a short-lived RabbitMQ connection
// to the default exchange, routed to the configured queue.
type AMQPPublisher struct {
	cfg         config.BrokerConfig
	log         logrus.FieldLogger
	dialTimeout time.Duration
}

func NewAMQPPublisher(cfg config.BrokerConfig, log logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{cfg: cfg, log: log.WithField("component", "order-publisher"), dialTimeout: 3 * time.Second}
}

// PublishOrderCreated marshals ev and publishes it as a persistent
// message.  The event id doubles as the AMQP message id.
func (p *AMQPPublisher) PublishOrderCreated(ctx context.Context, ev queue.OrderCreatedEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         "order.created",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.log.WithFields(logrus.Fields{"order_id": ev.OrderID, "event_id": ev.EventID}).Debug("order event published")
	return nil
}

// NewPublisher returns an AMQPPublisher, or a NopPublisher when order
// events are disabled or no broker URL is set.
func NewPublisher(cfg config.BrokerConfig, log logrus.FieldLogger) Publisher {
	if !cfg.Enabled || cfg.URL == "" {
		log.WithField("component", "order-publisher").Info("order events disabled")
		return NopPublisher{}
	}
	return NewAMQPPublisher(cfg, log)
}

// NopPublisher drops every event.  It is used when order events are
// disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, queue.OrderCreatedEvent) error { return nil }
