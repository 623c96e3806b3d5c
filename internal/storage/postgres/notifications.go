package postgres

import (
	"context"
	"fmt"
	"time"

	"job-scorer/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpsertNotification inserts a notification unless one already exists for
// the same (account, type, dedupe key) tuple. Returns true when a new row
// was created; duplicate triggers are silently ignored.
func (s *Store) UpsertNotification(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, account_id, type, title, message, dedupe_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, type, dedupe_key) DO NOTHING
	`

	result, err := s.sess.
		InsertBySql(query,
			uuid.New().String(),
			n.AccountID,
			n.Type,
			n.Title,
			n.Message,
			n.DedupeKey,
			n.Payload,
			time.Now(),
		).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to upsert notification",
			zap.String("account_id", n.AccountID),
			zap.String("dedupe_key", n.DedupeKey),
			zap.Error(err),
		)
		return false, fmt.Errorf("upsert notification: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
