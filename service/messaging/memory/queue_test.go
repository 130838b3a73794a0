package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobrunner/service/messaging"
)

type TestPayload struct {
	ID      string
	Message string
	Count   int
}

func payloadSize(p *TestPayload) int64 {
	return int64(len(p.Message))
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)

	ctx := context.Background()
	payload := TestPayload{
		ID:      "test-1",
		Message: "Hello, world!",
		Count:   1,
	}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, payload, *message.T())

	err = message.Ack()
	assert.NoError(t, err)
	err = message.Ack()
	assert.Error(t, err)
}

func TestQueueOrder(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{Count: i}))
	}
	for i := 0; i < 100; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, message.T().Count)
		require.NoError(t, message.Ack())
	}
}

func TestQueueNack(t *testing.T) {
	config := DefaultConfig()
	config.MaxBytes = 10
	queue := NewQueue[TestPayload](config, payloadSize)

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "nack-test", Message: "12345"}))
	assert.Equal(t, int64(5), queue.Bytes())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nack-test", message.T().ID)
	cause := fmt.Errorf("failed")
	require.NoError(t, message.Nack(cause))
	assert.Error(t, message.Nack(cause))
	assert.Error(t, message.Ack())
	assert.Equal(t, cause, message.(*Message[TestPayload]).Err())

	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.Nacked())
	assert.Equal(t, int64(0), queue.Bytes())
}

func TestQueueByteLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxBytes = 10
	queue := NewQueue[TestPayload](config, payloadSize)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &TestPayload{Message: "123456"}))
	err := queue.Publish(ctx, &TestPayload{Message: "123456"})
	assert.ErrorIs(t, err, messaging.ErrFull)
	// zero sized messages are never refused
	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "status"}))
	assert.Equal(t, int64(6), queue.Bytes())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Ack())
	assert.Equal(t, int64(0), queue.Bytes())
	require.NoError(t, queue.Publish(ctx, &TestPayload{Message: "123456"}))
}

func TestQueueClose(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "last"}))
	require.NoError(t, queue.Close())

	assert.ErrorIs(t, queue.Publish(ctx, &TestPayload{}), messaging.ErrClosed)
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", message.T().ID)
	_, err = queue.Consume(ctx)
	assert.ErrorIs(t, err, messaging.ErrClosed)
}

func TestQueueCloseWakesConsumer(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)
	errs := make(chan error, 1)
	go func() {
		_, err := queue.Consume(context.Background())
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, queue.Close())
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, messaging.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken up")
	}
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)

	ctx := context.Background()
	concurrency := 10
	messagesPerProducer := 10

	var wg sync.WaitGroup
	wg.Add(concurrency * 2)

	var consumedCount int
	var consumedMu sync.Mutex

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				message, err := queue.Consume(ctx)
				if err != nil {
					t.Errorf("Error consuming: %v", err)
					return
				}
				assert.NoError(t, message.Ack())
				consumedMu.Lock()
				consumedCount++
				consumedMu.Unlock()
			}
		}()
	}

	for i := 0; i < concurrency; i++ {
		go func(producerID int) {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				payload := TestPayload{
					ID:      fmt.Sprintf("p%d-m%d", producerID, j),
					Message: fmt.Sprintf("Message %d from producer %d", j, producerID),
					Count:   j,
				}
				if err := queue.Publish(ctx, &payload); err != nil {
					t.Errorf("Error publishing: %v", err)
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out")
	}

	assert.Equal(t, concurrency*messagesPerProducer, consumedCount)
	assert.Equal(t, 0, queue.Size())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := TestPayload{ID: "test"}
	err := queue.Publish(ctx, &payload)
	assert.Error(t, err)

	ctxWithTimeout, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	_, err = queue.Consume(ctxWithTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	emptyCtx := context.Background()
	err = queue.Publish(emptyCtx, &payload)
	assert.NoError(t, err)

	message, err := queue.Consume(emptyCtx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
}
