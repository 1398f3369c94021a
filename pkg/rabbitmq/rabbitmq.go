package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"dinehub/pkg/config"
	"dinehub/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Logger  *logger.Logger
}

func ConnectRabbitMQ(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%s%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, vhostPath(cfg.VHost))

	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("startup", "rabbitmq_connected", "Connected to RabbitMQ")
	return &RabbitMQ{
		Conn:    conn,
		Channel: channel,
		Logger:  log,
	}, nil
}

func vhostPath(vhost string) string {
	if vhost == "" || vhost == "/" {
		return "/"
	}
	return "/" + vhost
}

// DeclareEventExchange sets up the topic exchange panel events travel
// through. Routing key is the group name.
func (r *RabbitMQ) DeclareEventExchange(name string) error {
	return r.Channel.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
}

// SubscribeAll consumes every event on the exchange through a server-named
// exclusive queue. The queue disappears with the connection, which is the
// wanted behavior: panel events have no replay.
func (r *RabbitMQ) SubscribeAll(exchange string) (<-chan amqp.Delivery, error) {
	q, err := r.Channel.QueueDeclare(
		"",    // name (let server generate)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = r.Channel.QueueBind(
		q.Name,   // queue name
		"#",      // routing key
		exchange, // exchange
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	messages, err := r.Channel.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming messages: %w", err)
	}
	return messages, nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}

func (r *RabbitMQ) PublishMessage(exchange, routingKey string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return r.Channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			ContentType:  "application/json",
			Body:         message,
		})
}
