package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	next      int
	committed []int64
}

func (r *fakeReader) FetchMessage(c context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.next < len(r.messages) {
		m := r.messages[r.next]
		r.next++
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-c.Done()
	return kafka.Message{}, c.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func kafkaMessages(topic string, eventIDs ...string) []kafka.Message {
	messages := make([]kafka.Message, 0, len(eventIDs))
	for i, id := range eventIDs {
		messages = append(messages, kafka.Message{
			Topic:   topic,
			Offset:  int64(i),
			Value:   []byte(`{}`),
			Headers: []kafka.Header{{Key: HeaderEventID, Value: []byte(id)}},
		})
	}
	return messages
}

func newTestSubscriber(maxAttempts int) *KafkaSubscriber {
	s := NewKafkaSubscriber([]string{"localhost:9092"}, "test")
	s.maxAttempts = maxAttempts
	s.retryBackoff = time.Millisecond
	return s
}

func TestKafkaSubscriberRetriesFailedMessageBeforeCommitting(t *testing.T) {
	reader := &fakeReader{messages: kafkaMessages("order.created", "evt-0", "evt-1")}
	s := newTestSubscriber(5)

	var (
		mu      sync.Mutex
		handled []string
	)
	failures := 2
	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg.EventID())
		if msg.EventID() == "evt-0" && failures > 0 {
			failures--
			return errors.New("mail provider unavailable")
		}
		return nil
	}

	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.subscribe(c, map[string]messageReader{"order.created": reader}, handler)
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{0, 1}, reader.commits())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"evt-0", "evt-0", "evt-0", "evt-1"}, handled)
}

func TestKafkaSubscriberStopsWithoutCommittingExhaustedMessage(t *testing.T) {
	reader := &fakeReader{messages: kafkaMessages("order.created", "evt-0", "evt-1")}
	other := &fakeReader{}
	s := newTestSubscriber(3)

	var (
		mu       sync.Mutex
		attempts int
	)
	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		if msg.EventID() == "evt-0" {
			attempts++
			return errors.New("mail provider unavailable")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.subscribe(
			context.Background(),
			map[string]messageReader{"order.created": reader, "order.paid": other},
			handler,
		)
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "offset=0")
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}

	assert.Empty(t, reader.commits())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}
