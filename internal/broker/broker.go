package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homedrive/internal/logging"
	"homedrive/internal/metrics"
	"homedrive/internal/queue"
	"homedrive/internal/thumbs"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// dedupHeader carries the broker-side deduplication key on each message
	// (RabbitMQ message-deduplication plugin).
	dedupHeader    = "x-deduplication-header"
	publishTimeout = 5 * time.Second
)

// Bridge publishes and consumes thumbnail requests over RabbitMQ. It
// implements queue.Scheduler for the producer side.
type Bridge struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	prefetch int
	run      func(thumbs.Request) error
}

// Dial connects to the broker and declares the request queue. A connection
// failure here is a fatal startup condition for the distributed profile;
// there is no reconnect loop.
func Dial(url, queueName string, prefetch int, run func(thumbs.Request) error) (*Bridge, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to thumb request broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot open broker channel: %w", err)
	}

	// Durable queue with broker-side dedup so N producers racing on the
	// same source leave a single resident message.
	_, err = ch.QueueDeclare(queueName, true, false, false, false, amqp.Table{
		"x-message-deduplication": true,
	})
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("cannot declare queue %s: %w", queueName, err)
	}

	return &Bridge{
		conn:     conn,
		ch:       ch,
		queue:    queueName,
		prefetch: prefetch,
		run:      run,
	}, nil
}

// Submit implements queue.Scheduler by publishing the request. Duplicate
// suppression happens at the broker, so every accepted publish reports
// Queued; a publish failure reports Failed so callers do not promise work
// that was never enqueued.
func (b *Bridge) Submit(task queue.Task) queue.Outcome {
	if err := b.Publish(task.Request); err != nil {
		logging.Error("Could not send thumb request to queue: %v", err)
		return queue.Failed
	}
	return queue.Queued
}

// Publish sends one generation request with the source path as its
// deduplication key.
func (b *Bridge) Publish(req thumbs.Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("cannot encode thumb request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = b.ch.PublishWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers: amqp.Table{
			dedupHeader: req.FullFilename,
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("cannot publish thumb request: %w", err)
	}

	metrics.BrokerPublished.Inc()
	return nil
}

// Consume registers the consumer with bounded prefetch and returns once the
// subscription is established; deliveries are then processed in the
// background until the channel closes. Each delivery runs in its own
// goroutine and is acknowledged only after the generation task terminates.
func (b *Bridge) Consume() error {
	if err := b.ch.Qos(b.prefetch, 0, false); err != nil {
		return fmt.Errorf("cannot set prefetch: %w", err)
	}

	deliveries, err := b.ch.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("cannot consume queue %s: %w", b.queue, err)
	}

	logging.Info("Waiting for thumb requests in %s (prefetch %d)", b.queue, b.prefetch)

	go func() {
		for d := range deliveries {
			go b.handle(d)
		}
		logging.Info("Thumb request delivery channel closed")
	}()
	return nil
}

func (b *Bridge) handle(d amqp.Delivery) {
	defer func() {
		if err := d.Ack(false); err != nil {
			logging.Error("Failed to ack thumb request: %v", err)
		}
	}()

	var req thumbs.Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		logging.Error("Dropping malformed thumb request: %v", err)
		return
	}

	logging.Debug("Received thumb request for %s", req.FullFilename)
	metrics.BrokerConsumed.Inc()

	if err := b.run(req); err != nil {
		if queue.IsExpectedOutcome(err) {
			logging.Debug("%v", err)
		} else {
			logging.Error("Cannot generate thumb for file %s: %v", req.FullFilename, err)
		}
	}
}

// MessageCount returns the number of messages resident in the queue.
func (b *Bridge) MessageCount() (int, error) {
	q, err := b.ch.QueueDeclarePassive(b.queue, true, false, false, false, amqp.Table{
		"x-message-deduplication": true,
	})
	if err != nil {
		return 0, fmt.Errorf("cannot inspect queue %s: %w", b.queue, err)
	}
	return q.Messages, nil
}

// Purge drains the queue (used by tests).
func (b *Bridge) Purge() error {
	_, err := b.ch.QueuePurge(b.queue, false)
	return err
}

// Close tears down the channel and connection.
func (b *Bridge) Close() {
	if err := b.ch.Close(); err != nil {
		logging.Warn("Failed to close broker channel: %v", err)
	}
	if err := b.conn.Close(); err != nil {
		logging.Warn("Failed to close broker connection: %v", err)
	}
}
