package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-scorer/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// UpsertJobDescription materializes a posting as an account-scoped job
// description row. Repeated runs reuse the same row instead of duplicating.
func (s *Store) UpsertJobDescription(ctx context.Context, jd *models.JobDescription) (string, error) {
	query := `
		INSERT INTO job_descriptions (id, account_id, posting_id, title, company, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, posting_id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			content = EXCLUDED.content
		RETURNING id
	`

	var id string

	err := s.sess.
		SelectBySql(query,
			uuid.New().String(),
			jd.AccountID,
			jd.PostingID,
			jd.Title,
			jd.Company,
			jd.Content,
			time.Now(),
		).
		LoadOneContext(ctx, &id)

	if err != nil {
		s.logger.Error("failed to upsert job description",
			zap.String("account_id", jd.AccountID),
			zap.String("posting_id", jd.PostingID),
			zap.Error(err),
		)
		return "", fmt.Errorf("upsert job description: %w", err)
	}

	return id, nil
}

// UpsertAnalysisProcessing seeds (or resets) the scoring record for a
// (account, posting) pair in processing state and returns its id. The
// composite uniqueness constraint makes reprocessing idempotent.
func (s *Store) UpsertAnalysisProcessing(ctx context.Context, a *models.Analysis) (string, error) {
	query := `
		INSERT INTO analyses (
			id, account_id, resume_id, job_description_id, posting_id,
			status, metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (account_id, posting_id) DO UPDATE SET
			resume_id = EXCLUDED.resume_id,
			job_description_id = EXCLUDED.job_description_id,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	var id string

	err := s.sess.
		SelectBySql(query,
			uuid.New().String(),
			a.AccountID,
			a.ResumeID,
			a.JobDescriptionID,
			a.PostingID,
			models.AnalysisStatusProcessing,
			a.Metadata,
			time.Now(),
		).
		LoadOneContext(ctx, &id)

	if err != nil {
		s.logger.Error("failed to upsert analysis",
			zap.String("account_id", a.AccountID),
			zap.String("posting_id", a.PostingID),
			zap.Error(err),
		)
		return "", fmt.Errorf("upsert analysis: %w", err)
	}

	return id, nil
}

// CompleteAnalysis records a successful comparison outcome.
func (s *Store) CompleteAnalysis(ctx context.Context, analysisID string, score int, keywordsFound, keywordsMissing []string, suggestions string, metadata models.RawJSON) error {
	query := `
		UPDATE analyses SET
			status = $2,
			ats_score = $3,
			keywords_found = $4,
			keywords_missing = $5,
			suggestions = $6,
			metadata = $7,
			updated_at = $8
		WHERE id = $1
	`

	_, err := s.sess.
		UpdateBySql(query,
			analysisID,
			models.AnalysisStatusCompleted,
			score,
			pq.Array(keywordsFound),
			pq.Array(keywordsMissing),
			suggestions,
			metadata,
			time.Now(),
		).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to complete analysis",
			zap.String("analysis_id", analysisID),
			zap.Int("score", score),
			zap.Error(err),
		)
		return fmt.Errorf("complete analysis: %w", err)
	}

	return nil
}

// FailAnalysis marks the scoring record errored. The record is never deleted
// by the pipeline.
func (s *Store) FailAnalysis(ctx context.Context, analysisID, message string) error {
	metadata, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return fmt.Errorf("marshal failure metadata: %w", err)
	}

	_, err = s.sess.
		Update("analyses").
		Set("status", models.AnalysisStatusError).
		Set("metadata", metadata).
		Set("updated_at", time.Now()).
		Where("id = ?", analysisID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark analysis errored",
			zap.String("analysis_id", analysisID),
			zap.Error(err),
		)
		return fmt.Errorf("fail analysis: %w", err)
	}

	return nil
}
