package postgres

import (
	"context"
	"fmt"

	"job-scorer/internal/models"

	"github.com/gocraft/dbr/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// GetLatestResumes returns the most recent non-deleted resume per account.
func (s *Store) GetLatestResumes(ctx context.Context) ([]models.Resume, error) {
	query := `
		SELECT DISTINCT ON (account_id)
			id, account_id, file_name, created_at, deleted_at
		FROM resumes
		WHERE deleted_at IS NULL
		ORDER BY account_id, created_at DESC
	`

	var resumes []models.Resume

	_, err := s.sess.
		SelectBySql(query).
		LoadContext(ctx, &resumes)

	if err != nil {
		s.logger.Error("failed to get latest resumes", zap.Error(err))
		return nil, fmt.Errorf("get latest resumes: %w", err)
	}

	return resumes, nil
}

func (s *Store) GetSkills(ctx context.Context, accountID string) ([]models.Skill, error) {
	var skills []models.Skill

	_, err := s.sess.
		Select("id", "account_id", "name", "proficiency", "years", "notes", "deleted_at").
		From("skills").
		Where("account_id = ? AND deleted_at IS NULL", accountID).
		OrderAsc("name").
		LoadContext(ctx, &skills)

	if err != nil {
		s.logger.Error("failed to get skills",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get skills: %w", err)
	}

	return skills, nil
}

// GetSkillExperiences loads evidenced experience snippets. Keywords are a
// text[] column, so rows are scanned by hand with pq.Array.
func (s *Store) GetSkillExperiences(ctx context.Context, accountID string) ([]models.SkillExperience, error) {
	query := `
		SELECT id, account_id, skill_name, role_title, description, keywords
		FROM skill_experiences
		WHERE account_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := s.sess.
		SelectBySql(query, accountID).
		Rows()

	if err != nil {
		s.logger.Error("failed to get skill experiences",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get skill experiences: %w", err)
	}
	defer rows.Close()

	var experiences []models.SkillExperience

	for rows.Next() {
		var exp models.SkillExperience
		if err := rows.Scan(&exp.ID, &exp.AccountID, &exp.SkillName, &exp.RoleTitle,
			&exp.Description, pq.Array(&exp.Keywords)); err != nil {
			s.logger.Error("failed to scan skill experience",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("scan skill experience: %w", err)
		}
		experiences = append(experiences, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return experiences, nil
}

// GetLatestExtraction returns the most recent raw-text extraction for a
// resume, or nil when none exists.
func (s *Store) GetLatestExtraction(ctx context.Context, resumeID string) (*models.ResumeExtraction, error) {
	var extraction models.ResumeExtraction

	err := s.sess.
		Select("*").
		From("resume_extractions").
		Where("resume_id = ?", resumeID).
		OrderDesc("created_at").
		Limit(1).
		LoadOneContext(ctx, &extraction)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get resume extraction",
			zap.String("resume_id", resumeID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get resume extraction: %w", err)
	}

	return &extraction, nil
}
