package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue(Options{MaxRetries: 3, Backoff: time.Millisecond}, zaptest.NewLogger(t))
	defer q.Close()

	var calls int32
	require.NoError(t, q.Subscribe("events", func(ctx context.Context, body []byte) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("storage unavailable")
		}
		assert.Equal(t, "hello", string(body))
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), "events", []byte("hello")))
	q.Wait()
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestInMemoryQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueue(Options{MaxRetries: 2, Backoff: time.Millisecond}, zaptest.NewLogger(t))
	defer q.Close()

	var calls int32
	require.NoError(t, q.Subscribe("events", func(context.Context, []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("down")
	}))

	require.NoError(t, q.Publish(context.Background(), "events", nil))
	q.Wait()
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestInMemoryQueueDoesNotRetryPermanent(t *testing.T) {
	q := NewInMemoryQueue(Options{MaxRetries: 5, Backoff: time.Millisecond}, zaptest.NewLogger(t))
	defer q.Close()

	var calls int32
	require.NoError(t, q.Subscribe("events", func(context.Context, []byte) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad payload"))
	}))

	require.NoError(t, q.Publish(context.Background(), "events", nil))
	q.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestInMemoryQueueNoSubscribers(t *testing.T) {
	q := NewInMemoryQueue(Options{}, nil)
	defer q.Close()
	assert.Error(t, q.Publish(context.Background(), "nobody", nil))
}

func TestInMemoryQueuePublishAfterClose(t *testing.T) {
	q := NewInMemoryQueue(Options{}, zaptest.NewLogger(t))
	require.NoError(t, q.Subscribe("events", func(context.Context, []byte) error { return nil }))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Publish(context.Background(), "events", nil), ErrClosed)
}

func TestInMemoryQueueCloseWhilePublishing(t *testing.T) {
	q := NewInMemoryQueue(Options{}, zaptest.NewLogger(t))
	var handled int32
	require.NoError(t, q.Subscribe("events", func(context.Context, []byte) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}))

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := q.Publish(context.Background(), "events", []byte("x"))
				if errors.Is(err, ErrClosed) {
					return
				}
				if assert.NoError(t, err) {
					atomic.AddInt32(&accepted, 1)
				} else {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, q.Close())
	wg.Wait()

	assert.Equal(t, atomic.LoadInt32(&accepted), atomic.LoadInt32(&handled))
}

func TestPermanent(t *testing.T) {
	base := errors.New("x")
	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}

type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error { return nil }

type republished struct {
	topic   string
	headers amqp.Table
}

func newTestAMQP(t *testing.T, maxRetries int, out *[]republished) *AMQPQueue {
	return &AMQPQueue{
		opts:   Options{MaxRetries: maxRetries},
		logger: zaptest.NewLogger(t),
		ctx:    context.Background(),
		republish: func(topic string, _ []byte, headers amqp.Table) error {
			*out = append(*out, republished{topic: topic, headers: headers})
			return nil
		},
	}
}

func TestDeliverAcksSuccess(t *testing.T) {
	var out []republished
	q := newTestAMQP(t, 3, &out)
	ack := &fakeAck{}

	q.deliver("events", amqp.Delivery{Acknowledger: ack, Body: []byte("{}")}, func(context.Context, []byte) error { return nil })
	assert.Equal(t, 1, ack.acked)
	assert.Empty(t, out)
}

func TestDeliverRepublishesWithRetryCount(t *testing.T) {
	var out []republished
	q := newTestAMQP(t, 3, &out)
	ack := &fakeAck{}

	d := amqp.Delivery{Acknowledger: ack, Headers: amqp.Table{retryHeader: int32(1)}}
	q.deliver("events", d, func(context.Context, []byte) error { return errors.New("timeout") })

	require.Len(t, out, 1)
	assert.Equal(t, "events", out[0].topic)
	assert.Equal(t, 2, retryCount(out[0].headers))
	assert.Equal(t, 1, ack.acked)
}

func TestDeliverRejectsAfterMaxRetries(t *testing.T) {
	var out []republished
	q := newTestAMQP(t, 3, &out)
	ack := &fakeAck{}

	d := amqp.Delivery{Acknowledger: ack, Headers: amqp.Table{retryHeader: int64(3)}}
	q.deliver("events", d, func(context.Context, []byte) error { return errors.New("timeout") })

	assert.Empty(t, out)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestDeliverDropsPermanent(t *testing.T) {
	var out []republished
	q := newTestAMQP(t, 3, &out)
	ack := &fakeAck{}

	q.deliver("events", amqp.Delivery{Acknowledger: ack}, func(context.Context, []byte) error {
		return Permanent(errors.New("bad json"))
	})
	assert.Empty(t, out)
	assert.Equal(t, 1, ack.acked)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "two"}))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int16(2)}))
	assert.Equal(t, 4, retryCount(amqp.Table{retryHeader: 4}))
}
