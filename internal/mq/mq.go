// Package mq connects the service to RabbitMQ: committed domain events are
// mirrored onto a topic exchange, and finalized gateway payments arrive on a
// durable queue with a dead-letter queue for messages that can never apply.
package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client holds one connection with separate channels for consuming and
// publishing. A channel closed by a broker error takes its consumer down
// with it, so outgoing events never share one with the payment queue.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	pub  *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, pub, err := openChannels(conn)
	if err != nil {
		// Closing the connection also closes any channel already opened.
		_ = conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch, pub: pub}, nil
}

type channelOpener interface {
	Channel() (*amqp.Channel, error)
}

func openChannels(conn channelOpener) (consume, publish *amqp.Channel, err error) {
	consume, err = conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consume channel: %w", err)
	}
	publish, err = conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open publish channel: %w", err)
	}
	return consume, publish, nil
}

// Channel is used for topology and the payment consumer.
func (c *Client) Channel() *amqp.Channel { return c.ch }

// PublishChannel carries outgoing domain events.
func (c *Client) PublishChannel() *amqp.Channel { return c.pub }

func (c *Client) Close() {
	if c == nil {
		return
	}
	for _, ch := range []*amqp.Channel{c.pub, c.ch} {
		if ch != nil {
			_ = ch.Close()
		}
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeadLetterQueue names the queue that collects rejected messages of queue.
func DeadLetterQueue(queue string) string { return queue + ".dlq" }

// Declare sets up the events exchange and the payment queue with its
// dead-letter exchange and queue. It is idempotent.
func (c *Client) Declare(eventsExchange, paymentQueue string) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	dlx := paymentQueue + ".dlx"
	dlq := DeadLetterQueue(paymentQueue)

	if err := c.ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", eventsExchange, err)
	}
	if err := c.ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", dlx, err)
	}
	if _, err := c.ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", dlq, err)
	}
	if err := c.ch.QueueBind(dlq, dlq, dlx, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", dlq, err)
	}
	_, err := c.ch.QueueDeclare(paymentQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlq,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", paymentQueue, err)
	}
	return nil
}

// Consume starts a manual-ack consumer on queue.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
