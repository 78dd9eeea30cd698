package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const reconnectDelay = 5 * time.Second

// amqpChannel is the part of *amqp.Channel the queue uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type subscription struct {
	subject string
	handler func(data []byte) error
}

// RabbitMQQueue maps each subject to a fanout exchange so every instance of
// the service sees every transcript, command and status event. Subscriptions
// are recorded and bound again on every reconnect.
type RabbitMQQueue struct {
	url string
	log *zap.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel amqpChannel
	subs    []subscription

	closing   chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQQueue(url string, log *zap.Logger) (*RabbitMQQueue, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	q := &RabbitMQQueue{
		url:     url,
		log:     log,
		conn:    conn,
		channel: ch,
		closing: make(chan struct{}),
	}

	go q.monitorConnection()

	log.Info("Successfully connected to RabbitMQ")
	return q, nil
}

func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	return conn, ch, nil
}

func (q *RabbitMQQueue) Publish(subject string, data []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	if err := q.channel.ExchangeDeclare(subject, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	err := q.channel.Publish(subject, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        data,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	return nil
}

// Subscribe binds an exclusive auto-delete queue to the subject's exchange.
func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	sub := subscription{subject: subject, handler: handler}
	if err := q.consume(q.channel, sub); err != nil {
		return err
	}
	q.subs = append(q.subs, sub)

	q.log.Info("Subscribed to RabbitMQ exchange", zap.String("exchange", subject))
	return nil
}

func (q *RabbitMQQueue) consume(ch amqpChannel, sub subscription) error {
	if err := ch.ExchangeDeclare(sub.subject, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", sub.subject, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	// msgs closes with the channel, which ends this loop on disconnect.
	go func() {
		for msg := range msgs {
			if err := sub.handler(msg.Body); err != nil {
				q.log.Error("Error processing RabbitMQ message",
					zap.String("exchange", sub.subject),
					zap.Error(err),
				)
			}
		}
	}()
	return nil
}

// reattach binds every recorded subscription on ch and then swaps it in.
// On error the previous connection stays in place.
func (q *RabbitMQQueue) reattach(conn *amqp.Connection, ch amqpChannel) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.closing:
		return errors.New("rabbitmq: queue closed")
	default:
	}

	for _, sub := range q.subs {
		if err := q.consume(ch, sub); err != nil {
			return fmt.Errorf("rabbitmq: restore %s: %w", sub.subject, err)
		}
	}

	q.conn = conn
	q.channel = ch
	q.log.Info("Restored RabbitMQ subscriptions", zap.Int("subscriptions", len(q.subs)))
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closing) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel != nil {
		q.channel.Close()
		q.channel = nil
	}
	if q.conn != nil {
		err := q.conn.Close()
		q.conn = nil
		return err
	}
	return nil
}

// monitorConnection redials after an unexpected close and restores subscriptions.
func (q *RabbitMQQueue) monitorConnection() {
	for {
		q.mu.RLock()
		conn := q.conn
		q.mu.RUnlock()
		if conn == nil {
			return
		}

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok {
			return
		}
		q.log.Warn("RabbitMQ connection lost, reconnecting", zap.String("reason", reason.Reason))

		for {
			select {
			case <-q.closing:
				return
			case <-time.After(reconnectDelay):
			}

			conn, ch, err := dial(q.url)
			if err != nil {
				q.log.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				continue
			}

			if err := q.reattach(conn, ch); err != nil {
				q.log.Error("Failed to restore RabbitMQ subscriptions", zap.Error(err))
				conn.Close()
				continue
			}

			q.log.Info("Successfully reconnected to RabbitMQ")
			break
		}
	}
}
