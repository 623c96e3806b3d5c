package models

import "time"

// Posting lifecycle statuses. A posting enters the table as StatusQueued,
// is claimed into StatusProcessing by a batch run, and ends in
// StatusProcessed or StatusError. Terminal states are never mutated again.
const (
	PostingStatusQueued     = "queued"
	PostingStatusProcessing = "processing"
	PostingStatusProcessed  = "processed"
	PostingStatusError      = "error"
)

type Posting struct {
	ID              string    `db:"id"`
	Source          string    `db:"source"`
	SourceURL       string    `db:"source_url"`
	Title           string    `db:"title"`
	Company         string    `db:"company"`
	Description     string    `db:"description"`
	DescriptionNorm string    `db:"description_norm"`
	ContentHash     string    `db:"content_hash"`
	FetchedAt       time.Time `db:"fetched_at"`
	Status          string    `db:"status"`
	ErrorMessage    *string   `db:"error_message"`
}
