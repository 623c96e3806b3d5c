package models

import "time"

const NotificationTypeJobMatch = "job_match"

// Notification is deduplicated on (account_id, type, dedupe_key); a second
// insert for the same tuple is silently ignored.
type Notification struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	DedupeKey string    `db:"dedupe_key"`
	Payload   RawJSON   `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
