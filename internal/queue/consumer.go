package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one delivery. A returned error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// ConsumerConfig names the broker objects a Consumer declares and binds.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
}

// Consumer reads deliveries from a durable queue bound to a topic exchange.
// Run reconnects with exponential backoff whenever the broker goes away.
type Consumer struct {
	cfg ConsumerConfig
	log *zap.Logger
}

// NewConsumer fills defaults for empty fields of cfg.
func NewConsumer(cfg ConsumerConfig, log *zap.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = Exchange
	}
	if cfg.Queue == "" {
		cfg.Queue = ActivityQueue
	}
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = []string{"#"}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{cfg: cfg, log: log}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range c.cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("set qos failed", zap.Error(err))
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.log.Info("consuming", zap.String("queue", q.Name), zap.Strings("bindings", c.cfg.Bindings))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.log.Error("handle message failed", zap.String("key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
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

// ActivityLog returns a Handler that writes one structured line per event.
// Unknown routing keys are logged and acknowledged.
func ActivityLog(log *zap.Logger) Handler {
	return func(_ context.Context, key string, body []byte) error {
		switch {
		case strings.HasPrefix(key, "booking."):
			var ev BookingEvent
			if err := json.Unmarshal(body, &ev); err != nil {
				return fmt.Errorf("unmarshal %s: %w", key, err)
			}
			fields := []zap.Field{
				zap.String("event", key),
				zap.String("booking_id", ev.BookingID),
				zap.String("service", ev.ServiceTitle),
				zap.String("client_id", ev.ClientID),
				zap.String("freelancer_id", ev.FreelancerID),
				zap.String("actor_id", ev.ActorID),
				zap.String("status", ev.Status),
				zap.Int64("price", ev.Price),
				zap.String("at", ev.OccurredAt),
			}
			if ev.Refunded > 0 {
				fields = append(fields, zap.Int64("refunded", ev.Refunded))
			}
			if ev.Rating > 0 {
				fields = append(fields, zap.Int("rating", ev.Rating))
			}
			log.Info("booking activity", fields...)
		case key == RKWalletWithdrawn:
			var ev WalletEvent
			if err := json.Unmarshal(body, &ev); err != nil {
				return fmt.Errorf("unmarshal %s: %w", key, err)
			}
			log.Info("wallet activity",
				zap.String("event", key),
				zap.String("transaction_id", ev.TransactionID),
				zap.String("user_id", ev.UserID),
				zap.Int64("amount", ev.Amount),
				zap.Int64("balance", ev.Balance),
				zap.String("destination", ev.Destination),
				zap.String("at", ev.OccurredAt),
			)
		default:
			log.Warn("skip unknown event", zap.String("event", key))
		}
		return nil
	}
}
