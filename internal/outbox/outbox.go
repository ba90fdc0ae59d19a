// Package outbox records events in the same transaction as the state change they describe and
// relays them to the broker after commit.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Alturino/storefront/internal/repository"
)

// Enqueue inserts an unsent event through q, which must be bound to the caller's transaction.
func Enqueue(
	c context.Context,
	q *repository.Queries,
	topic string,
	key string,
	payload any,
) (repository.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return repository.OutboxEvent{}, fmt.Errorf("failed marshaling %s payload with error=%w", topic, err)
	}
	event, err := q.InsertOutboxEvent(c, repository.InsertOutboxEventParams{
		EventID: uuid.New(),
		Topic:   topic,
		Key:     key,
		Payload: data,
	})
	if err != nil {
		return repository.OutboxEvent{}, fmt.Errorf("failed inserting %s outbox event with error=%w", topic, err)
	}
	return event, nil
}
