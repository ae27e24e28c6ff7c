package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one message body. Returning an error asks for a retry
// unless the error is wrapped with Permanent.
type Handler func(ctx context.Context, body []byte) error

type Queue interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("queue closed")

type Options struct {
	MaxRetries int
	Backoff    time.Duration
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// InMemoryQueue delivers to every subscriber of a topic in its own
// goroutine and retries failed jobs with a linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	opts     Options
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewInMemoryQueue(opts Options, logger *zap.Logger) *InMemoryQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InMemoryQueue{
		handlers: make(map[string][]Handler),
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// job wraps a message payload with retry info
type job struct {
	topic      string
	body       []byte
	retryCount int
}

func (q *InMemoryQueue) Publish(ctx context.Context, topic string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// wg.Add happens under mu so it cannot race Close's Wait.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx.Err() != nil {
		return ErrClosed
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(handler, job{topic: topic, body: body})
	}
	return nil
}

func (q *InMemoryQueue) processJob(handler Handler, j job) {
	defer q.wg.Done()
	for {
		err := handler(q.ctx, j.body)
		if err == nil {
			q.logger.Debug("job processed", zap.String("topic", j.topic), zap.Int("retries", j.retryCount))
			return
		}
		if IsPermanent(err) {
			q.logger.Warn("job dropped", zap.String("topic", j.topic), zap.Error(err))
			return
		}

		j.retryCount++
		if j.retryCount > q.opts.MaxRetries {
			q.logger.Error("job permanently failed",
				zap.String("topic", j.topic),
				zap.Int("attempts", j.retryCount),
				zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying",
			zap.String("topic", j.topic),
			zap.Int("attempt", j.retryCount),
			zap.Int("max_retries", q.opts.MaxRetries),
			zap.Error(err))

		select {
		case <-time.After(time.Duration(j.retryCount) * q.opts.Backoff):
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished or given up.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// Close stops pending retries and waits for running handlers.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
