package baseline

import (
	"context"
	"fmt"
	"strings"

	"job-scorer/internal/models"

	"go.uber.org/zap"
)

// Baseline variants. Structured, user-curated skill data is higher-signal
// than unstructured extracted resume text, so it always wins when both
// exist.
const (
	VariantSkillsProfile    = "skills_profile"
	VariantResumeExtraction = "resume_extraction"
	VariantNone             = "none"
)

// maxEvidenceEntries caps the experience evidence section.
const maxEvidenceEntries = 20

type store interface {
	GetSkills(ctx context.Context, accountID string) ([]models.Skill, error)
	GetSkillExperiences(ctx context.Context, accountID string) ([]models.SkillExperience, error)
	GetLatestExtraction(ctx context.Context, resumeID string) (*models.ResumeExtraction, error)
}

// Baseline is the candidate-side text compared against a posting. Text is
// empty for VariantNone, which is a normal "insufficient data" outcome for
// incomplete profiles, not an error.
type Baseline struct {
	Text    string
	Variant string
}

type Builder struct {
	store  store
	logger *zap.Logger
}

func NewBuilder(store store, logger *zap.Logger) *Builder {
	return &Builder{
		store:  store,
		logger: logger,
	}
}

// Build produces the best available baseline for a candidate: a rendered
// skills profile when structured skills exist, else the latest raw resume
// extraction, else none.
func (b *Builder) Build(ctx context.Context, accountID, resumeID string) (*Baseline, error) {
	skills, err := b.store.GetSkills(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	if len(skills) > 0 {
		experiences, err := b.store.GetSkillExperiences(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load skill experiences: %w", err)
		}

		b.logger.Debug("built skills profile baseline",
			zap.String("account_id", accountID),
			zap.Int("skills", len(skills)),
			zap.Int("experiences", len(experiences)),
		)

		return &Baseline{
			Text:    renderSkillsProfile(skills, experiences),
			Variant: VariantSkillsProfile,
		}, nil
	}

	extraction, err := b.store.GetLatestExtraction(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("load resume extraction: %w", err)
	}

	if extraction != nil && strings.TrimSpace(extraction.Text) != "" {
		b.logger.Debug("built resume extraction baseline",
			zap.String("account_id", accountID),
			zap.String("resume_id", resumeID),
		)

		return &Baseline{
			Text:    extraction.Text,
			Variant: VariantResumeExtraction,
		}, nil
	}

	return &Baseline{Variant: VariantNone}, nil
}

func renderSkillsProfile(skills []models.Skill, experiences []models.SkillExperience) string {
	var sb strings.Builder

	sb.WriteString("Skills:\n")
	for _, skill := range skills {
		sb.WriteString("- ")
		sb.WriteString(skill.Name)

		var details []string
		if skill.Proficiency != nil && *skill.Proficiency != "" {
			details = append(details, "proficiency: "+*skill.Proficiency)
		}
		if skill.Years != nil {
			details = append(details, fmt.Sprintf("%d years", *skill.Years))
		}
		if len(details) > 0 {
			sb.WriteString(" (" + strings.Join(details, ", ") + ")")
		}

		if skill.Notes != nil && *skill.Notes != "" {
			sb.WriteString(" - " + *skill.Notes)
		}
		sb.WriteString("\n")
	}

	if len(experiences) == 0 {
		return sb.String()
	}

	if len(experiences) > maxEvidenceEntries {
		experiences = experiences[:maxEvidenceEntries]
	}

	sb.WriteString("\nExperience Evidence:\n")
	for _, exp := range experiences {
		sb.WriteString("- ")
		sb.WriteString(exp.SkillName)
		if exp.RoleTitle != "" {
			sb.WriteString(" as " + exp.RoleTitle)
		}
		if len(exp.Keywords) > 0 {
			sb.WriteString(" [" + strings.Join(exp.Keywords, ", ") + "]")
		}
		if exp.Description != "" {
			sb.WriteString(": " + exp.Description)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
