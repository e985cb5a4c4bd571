package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/train-station/internal/config"
)

const maxBackoff = 30 * time.Second

// StartOrderConsumer connects to RabbitMQ, declares the order events queue
// (durable) and appends every event to the order log file as one JSON
// line.  It reconnects with exponential backoff and returns when ctx is
// cancelled.
func StartOrderConsumer(ctx context.Context, cfg config.BrokerConfig, log logrus.FieldLogger) error {
	sink, closeSink, err := newOrderLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeSink()

	log = log.WithFields(logrus.Fields{"component": "order-consumer", "queue": cfg.Queue})
	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.WithError(err).WithField("retry_in", backoff.String()).Warn("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		log.Info("connected to broker")

		err = consumeLoop(ctx, conn, cfg.Queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink *logrus.Logger, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, sink); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// newOrderLog opens the append-only order log as a logrus JSON logger.
func newOrderLog(path string) (*logrus.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir order log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open order log: %w", err)
	}
	return newSink(f), func() { _ = f.Close() }, nil
}

func newSink(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func handleMessage(body []byte, sink *logrus.Logger) error {
	var ev OrderCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OrderID == 0 {
		return errors.New("event without order_id")
	}
	slots := make([]string, 0, len(ev.Tickets))
	for _, t := range ev.Tickets {
		slots = append(slots, fmt.Sprintf("%d/%d/%d", t.JourneyID, t.Cargo, t.Seat))
	}
	sink.WithFields(logrus.Fields{
		"event_id":   ev.EventID,
		"order_id":   ev.OrderID,
		"user_id":    ev.UserID,
		"tickets":    slots,
		"created_at": ev.CreatedAt.Format(time.RFC3339Nano),
	}).Info("order created")
	return nil
}
