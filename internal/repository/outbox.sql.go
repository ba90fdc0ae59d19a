package repository

import (
	"context"

	"github.com/google/uuid"
)

const outboxColumns = `id, event_id, topic, key, payload, attempts, created_at, sent_at`

func scanOutboxEvent(row interface{ Scan(...interface{}) error }) (OutboxEvent, error) {
	var i OutboxEvent
	err := row.Scan(
		&i.ID,
		&i.EventID,
		&i.Topic,
		&i.Key,
		&i.Payload,
		&i.Attempts,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const insertOutboxEvent = `-- name: InsertOutboxEvent :one
INSERT INTO outbox (event_id, topic, key, payload)
VALUES ($1, $2, $3, $4)
RETURNING ` + outboxColumns

type InsertOutboxEventParams struct {
	EventID uuid.UUID
	Topic   string
	Key     string
	Payload []byte
}

func (q *Queries) InsertOutboxEvent(c context.Context, arg InsertOutboxEventParams) (OutboxEvent, error) {
	return scanOutboxEvent(q.db.QueryRow(c, insertOutboxEvent, arg.EventID, arg.Topic, arg.Key, arg.Payload))
}

// Rows locked by another relay are skipped so several relays can drain the table.
const claimOutboxEvents = `-- name: ClaimOutboxEvents :many
SELECT ` + outboxColumns + `
FROM outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED
`

func (q *Queries) ClaimOutboxEvents(c context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.Query(c, claimOutboxEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OutboxEvent{}
	for rows.Next() {
		i, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markOutboxEventSent = `-- name: MarkOutboxEventSent :exec
UPDATE outbox
SET sent_at = NOW(), attempts = attempts + 1
WHERE id = $1
`

func (q *Queries) MarkOutboxEventSent(c context.Context, id int64) error {
	_, err := q.db.Exec(c, markOutboxEventSent, id)
	return err
}

const incrementOutboxAttempts = `-- name: IncrementOutboxAttempts :exec
UPDATE outbox
SET attempts = attempts + 1
WHERE id = $1
`

func (q *Queries) IncrementOutboxAttempts(c context.Context, id int64) error {
	_, err := q.db.Exec(c, incrementOutboxAttempts, id)
	return err
}

const findOutboxEventsByKey = `-- name: FindOutboxEventsByKey :many
SELECT ` + outboxColumns + `
FROM outbox
WHERE topic = $1 AND key = $2
ORDER BY id
`

type FindOutboxEventsByKeyParams struct {
	Topic string
	Key   string
}

func (q *Queries) FindOutboxEventsByKey(
	c context.Context,
	arg FindOutboxEventsByKeyParams,
) ([]OutboxEvent, error) {
	rows, err := q.db.Query(c, findOutboxEventsByKey, arg.Topic, arg.Key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OutboxEvent{}
	for rows.Next() {
		i, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
