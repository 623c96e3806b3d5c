package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gocraft/dbr/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultThresholdKey = "default_match_threshold"

// GetDefaultThreshold returns the global default match threshold, or nil
// when the setting row is missing or unparseable. Callers fall back to a
// hardcoded default rather than failing the batch.
func (s *Store) GetDefaultThreshold(ctx context.Context) (*float64, error) {
	var value string

	err := s.sess.
		Select("value").
		From("app_settings").
		Where("key = ?", defaultThresholdKey).
		LoadOneContext(ctx, &value)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get default threshold", zap.Error(err))
		return nil, fmt.Errorf("get default threshold: %w", err)
	}

	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil {
		s.logger.Warn("default threshold setting is not a number",
			zap.String("value", value),
		)
		return nil, nil
	}

	return &threshold, nil
}

// GetThresholdOverrides returns per-account threshold overrides for exactly
// the given accounts. Accounts without an override are absent from the map.
func (s *Store) GetThresholdOverrides(ctx context.Context, accountIDs []string) (map[string]float64, error) {
	overrides := make(map[string]float64)

	if len(accountIDs) == 0 {
		return overrides, nil
	}

	query := `
		SELECT account_id, match_threshold
		FROM account_settings
		WHERE account_id = ANY($1) AND match_threshold IS NOT NULL
	`

	rows, err := s.sess.
		SelectBySql(query, pq.Array(accountIDs)).
		Rows()

	if err != nil {
		s.logger.Error("failed to get threshold overrides",
			zap.Int("accounts", len(accountIDs)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get threshold overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		var threshold float64
		if err := rows.Scan(&accountID, &threshold); err != nil {
			return nil, fmt.Errorf("scan threshold override: %w", err)
		}
		overrides[accountID] = threshold
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return overrides, nil
}
