// cmd/worker/main.go
package main

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/channel-ledger/internal/app"
	"github.com/unclebandit/channel-ledger/internal/config"
	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/logging"
	"github.com/unclebandit/channel-ledger/internal/queue"
	"github.com/unclebandit/channel-ledger/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	opts := queue.Options{MaxRetries: cfg.Queue.MaxRetries, Backoff: cfg.Queue.Backoff}
	var q queue.Queue
	if cfg.Queue.URL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.Queue.URL, cfg.Queue.Prefetch, opts, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		q = amqpQueue
	} else {
		q = queue.NewInMemoryQueue(opts, logger)
	}
	defer q.Close()

	if err := q.Subscribe(cfg.Queue.Topic, newHandler(a.Events, logger)); err != nil {
		logger.Fatal("Failed to register consumer", zap.Error(err))
	}

	// Without a broker, events are read as JSON lines from stdin.
	if cfg.Queue.URL == "" {
		go func() {
			n, err := feedLines(ctx, os.Stdin, q, cfg.Queue.Topic)
			if err != nil {
				logger.Error("reading events from stdin", zap.Error(err))
			}
			logger.Info("stdin closed", zap.Int("events", n))
		}()
	}

	logger.Info("Worker running, waiting for messages...", zap.String("topic", cfg.Queue.Topic))
	<-ctx.Done()
}

// newHandler applies one event. Only storage failures are worth a retry;
// anything else is dropped.
func newHandler(events *service.EventApplier, logger *zap.Logger) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		err := events.Handle(ctx, body)
		if err == nil || appErrors.Retryable(err) {
			return err
		}
		logger.Warn("dropping event", zap.String("kind", string(appErrors.KindOf(err))), zap.Error(err))
		return queue.Permanent(err)
	}
}

// feedLines publishes every non-blank line of r to topic.
func feedLines(ctx context.Context, r io.Reader, q queue.Queue, topic string) (int, error) {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := q.Publish(ctx, topic, []byte(line)); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}
