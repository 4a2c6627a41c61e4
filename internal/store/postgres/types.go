package postgres

import "time"

// OutboxEvent is one entry in the reliable outbox: revision-ingested
// notifications are written here in the same transaction as the revision
// they describe, then published out-of-band (the outbox_events table).
type OutboxEvent struct {
	EventID     string                 `db:"event_id"`
	EventType   string                 `db:"event_type"`
	AggregateID string                 `db:"aggregate_id"`
	Payload     map[string]interface{} `db:"payload"`
	Status      string                 `db:"status"` // pending, published, failed
	CreatedAt   time.Time              `db:"created_at"`
	PublishedAt *time.Time             `db:"published_at"`
	RetryCount  int                    `db:"retry_count"`
	LastError   string                 `db:"last_error"`
}
