package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusError      = "error"
)

// Analysis is the persisted outcome of one (candidate, posting) comparison.
// At most one row exists per (account_id, posting_id) pair.
type Analysis struct {
	ID               string    `db:"id"`
	AccountID        string    `db:"account_id"`
	ResumeID         string    `db:"resume_id"`
	JobDescriptionID string    `db:"job_description_id"`
	PostingID        string    `db:"posting_id"`
	Status           string    `db:"status"`
	ATSScore         *int      `db:"ats_score"` // 0–100
	KeywordsFound    []string  `db:"keywords_found"`
	KeywordsMissing  []string  `db:"keywords_missing"`
	Suggestions      *string   `db:"suggestions"`
	Metadata         RawJSON   `db:"metadata"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// JobDescription is the per-account row materialized from a posting so
// analyses reference account-scoped job data.
type JobDescription struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	PostingID string    `db:"posting_id"`
	Title     string    `db:"title"`
	Company   string    `db:"company"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

type RawJSON json.RawMessage

func (r RawJSON) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.RawMessage(r).MarshalJSON()
}

func (r *RawJSON) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	*r = RawJSON(bytes)
	return nil
}
