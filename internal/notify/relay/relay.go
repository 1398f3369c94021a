// Package relay bridges panel events between order-service processes over
// RabbitMQ. Each process publishes its events to a topic exchange and
// re-delivers everyone else's into its local hub, so viewers see the same
// stream no matter which process they landed on.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"dinehub/internal/notify"
	"dinehub/pkg/logger"
	"dinehub/pkg/rabbitmq"

	"github.com/google/uuid"
)

type envelope struct {
	Origin string          `json:"origin"`
	Group  string          `json:"group"`
	Type   string          `json:"type"`
	Order  json.RawMessage `json:"order"`
}

type Relay struct {
	inner    notify.Broadcaster
	rabbitMQ *rabbitmq.RabbitMQ
	exchange string
	origin   string
	logger   *logger.Logger
}

func New(inner notify.Broadcaster, rmq *rabbitmq.RabbitMQ, exchange string, log *logger.Logger) (*Relay, error) {
	if err := rmq.DeclareEventExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Relay{
		inner:    inner,
		rabbitMQ: rmq,
		exchange: exchange,
		origin:   uuid.NewString(),
		logger:   log,
	}, nil
}

func (r *Relay) Join(group string, sub notify.Subscriber) {
	r.inner.Join(group, sub)
}

func (r *Relay) Leave(group string, sub notify.Subscriber) {
	r.inner.Leave(group, sub)
}

// Publish delivers locally first, then forwards the event to the exchange
// with the group name as routing key.
func (r *Relay) Publish(ctx context.Context, group, event string, payload any) error {
	if err := r.inner.Publish(ctx, group, event, payload); err != nil {
		return err
	}

	order, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(envelope{Origin: r.origin, Group: group, Type: event, Order: order})
	if err != nil {
		return err
	}
	if err := r.rabbitMQ.PublishMessage(r.exchange, group, frame); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run consumes remote envelopes until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.rabbitMQ.SubscribeAll(r.exchange)
	if err != nil {
		return err
	}

	r.logger.Info("startup", "relay_started", "Notification relay consuming "+r.exchange)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("relay message channel closed")
			}
			r.deliver(msg.Body)
		}
	}
}

func (r *Relay) deliver(body []byte) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		r.logger.Error("", "relay_decode_failed", "Dropped malformed relay envelope", err)
		return
	}
	// Local viewers already got this process's own events.
	if env.Origin == r.origin {
		return
	}
	if err := r.inner.Publish(context.Background(), env.Group, env.Type, env.Order); err != nil {
		r.logger.Error("", "relay_deliver_failed", "Failed to deliver relayed event", err)
	}
}

func (r *Relay) Close() error {
	return r.inner.Close()
}
