package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes to and consumes from durable queues named after the
// topic. Failed deliveries are republished with an incremented retry
// header until MaxRetries, then rejected.
type AMQPQueue struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	opts     Options
	prefetch int
	logger   *zap.Logger

	// publishMu serialises use of the channel, which is not safe for
	// concurrent publishing.
	publishMu sync.Mutex
	republish func(topic string, body []byte, headers amqp.Table) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func DialAMQP(url string, prefetch int, opts Options, logger *zap.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &AMQPQueue{
		conn:     conn,
		ch:       ch,
		opts:     opts,
		prefetch: prefetch,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	q.republish = q.publish
	return q, nil
}

func (q *AMQPQueue) declare(topic string) error {
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.publish(topic, body, amqp.Table{})
}

func (q *AMQPQueue) publish(topic string, body []byte, headers amqp.Table) error {
	q.publishMu.Lock()
	defer q.publishMu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
}

func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	q.publishMu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.publishMu.Unlock()
	if err != nil {
		return err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for d := range msgs {
			q.deliver(topic, d, handler)
		}
	}()
	return nil
}

func (q *AMQPQueue) deliver(topic string, d amqp.Delivery, handler Handler) {
	err := handler(q.ctx, d.Body)
	if err == nil {
		d.Ack(false)
		return
	}
	if IsPermanent(err) {
		q.logger.Warn("message dropped", zap.String("topic", topic), zap.String("message_id", d.MessageId), zap.Error(err))
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries >= q.opts.MaxRetries {
		q.logger.Error("message permanently failed",
			zap.String("topic", topic),
			zap.String("message_id", d.MessageId),
			zap.Int("retries", retries),
			zap.Error(err))
		d.Nack(false, false)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[retryHeader] = int32(retries + 1)
	if pubErr := q.republish(topic, d.Body, headers); pubErr != nil {
		q.logger.Error("republish failed, requeueing", zap.String("topic", topic), zap.Error(pubErr))
		d.Nack(false, true)
		return
	}
	q.logger.Warn("message failed, retrying",
		zap.String("topic", topic),
		zap.String("message_id", d.MessageId),
		zap.Int("attempt", retries+1),
		zap.Error(err))
	d.Ack(false)
}

// retryCount reads the retry header whatever integer type the broker
// decoded it as.
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	q.cancel()
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	q.wg.Wait()
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Ping opens and closes a broker connection.
func Ping(ctx context.Context, url string) error {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return err
	}
	return conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
