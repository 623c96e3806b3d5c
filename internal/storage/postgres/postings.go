package postgres

import (
	"context"
	"fmt"

	"job-scorer/internal/models"

	"go.uber.org/zap"
)

// GetQueuedPostings returns up to limit postings awaiting scoring, oldest
// fetch first.
func (s *Store) GetQueuedPostings(ctx context.Context, limit int) ([]models.Posting, error) {
	var postings []models.Posting

	_, err := s.sess.
		Select("*").
		From("job_postings").
		Where("status = ?", models.PostingStatusQueued).
		OrderAsc("fetched_at").
		Limit(uint64(limit)).
		LoadContext(ctx, &postings)

	if err != nil {
		s.logger.Error("failed to get queued postings",
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get queued postings: %w", err)
	}

	return postings, nil
}

// ClaimPosting transitions a posting from queued to processing. The guarded
// WHERE means a posting claimed by an overlapping run reports false here,
// so two runs never score the same posting.
func (s *Store) ClaimPosting(ctx context.Context, postingID string) (bool, error) {
	result, err := s.sess.
		Update("job_postings").
		Set("status", models.PostingStatusProcessing).
		Where("id = ? AND status = ?", postingID, models.PostingStatusQueued).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to claim posting",
			zap.String("posting_id", postingID),
			zap.Error(err),
		)
		return false, fmt.Errorf("claim posting: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (s *Store) MarkPostingProcessed(ctx context.Context, postingID string) error {
	_, err := s.sess.
		Update("job_postings").
		Set("status", models.PostingStatusProcessed).
		Set("error_message", nil).
		Where("id = ?", postingID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark posting processed",
			zap.String("posting_id", postingID),
			zap.Error(err),
		)
		return fmt.Errorf("mark posting processed: %w", err)
	}

	return nil
}

func (s *Store) MarkPostingError(ctx context.Context, postingID, message string) error {
	_, err := s.sess.
		Update("job_postings").
		Set("status", models.PostingStatusError).
		Set("error_message", message).
		Where("id = ?", postingID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark posting errored",
			zap.String("posting_id", postingID),
			zap.Error(err),
		)
		return fmt.Errorf("mark posting error: %w", err)
	}

	return nil
}

// HasProcessedDuplicate reports whether a posting with the same content hash
// but a different URL was already processed. Such republished postings are
// skipped rather than rescored.
func (s *Store) HasProcessedDuplicate(ctx context.Context, contentHash, sourceURL string) (bool, error) {
	var count int

	err := s.sess.
		Select("COUNT(*)").
		From("job_postings").
		Where("content_hash = ? AND source_url != ? AND status = ?",
			contentHash, sourceURL, models.PostingStatusProcessed).
		LoadOneContext(ctx, &count)

	if err != nil {
		s.logger.Error("failed to check duplicate content hash",
			zap.String("content_hash", contentHash),
			zap.Error(err),
		)
		return false, fmt.Errorf("check duplicate posting: %w", err)
	}

	return count > 0, nil
}
