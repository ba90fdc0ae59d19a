package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/broker"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/outbox"
	"github.com/Alturino/storefront/internal/repository"
	inTestutil "github.com/Alturino/storefront/internal/testutil"
)

type recordingPublisher struct {
	mu       sync.Mutex
	fail     bool
	messages []broker.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg broker.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestRelayOnce(t *testing.T) {
	c := inTestutil.Context()
	pool := inTestutil.StartPostgres(t, c)
	store := repository.NewStore(pool)

	var enqueued repository.OutboxEvent
	err := store.ExecTx(c, func(q *repository.Queries) error {
		var err error
		enqueued, err = outbox.Enqueue(c, q, "order.created", "1", map[string]int64{"orderId": 1})
		return err
	})
	require.NoError(t, err)

	t.Run("given broker failure should keep event pending", func(t *testing.T) {
		publisher := &recordingPublisher{fail: true}
		before := testutil.ToFloat64(metrics.OutboxPublishedTotal.WithLabelValues("order.created", "failed"))

		sent, err := outbox.NewRelay(store, publisher, 0, 10).RelayOnce(c)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.OutboxPublishedTotal.WithLabelValues("order.created", "failed")))

		events, err := store.FindOutboxEventsByKey(c, repository.FindOutboxEventsByKeyParams{Topic: "order.created", Key: "1"})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Nil(t, events[0].SentAt)
		assert.EqualValues(t, 1, events[0].Attempts)
	})

	t.Run("given healthy broker should publish and mark sent once", func(t *testing.T) {
		publisher := &recordingPublisher{}
		relay := outbox.NewRelay(store, publisher, 0, 10)

		sent, err := relay.RelayOnce(c)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		require.Len(t, publisher.messages, 1)
		assert.Equal(t, enqueued.EventID.String(), publisher.messages[0].EventID())
		assert.JSONEq(t, `{"orderId":1}`, string(publisher.messages[0].Payload))

		sent, err = relay.RelayOnce(c)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
		assert.Len(t, publisher.messages, 1)
	})
}
