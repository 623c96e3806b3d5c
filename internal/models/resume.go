package models

import "time"

type Resume struct {
	ID        string     `db:"id"`
	AccountID string     `db:"account_id"`
	FileName  string     `db:"file_name"`
	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Skill is a structured, user-curated skill entry. Soft-deleted rows are
// excluded from baseline building.
type Skill struct {
	ID          string     `db:"id"`
	AccountID   string     `db:"account_id"`
	Name        string     `db:"name"`
	Proficiency *string    `db:"proficiency"`
	Years       *int       `db:"years"`
	Notes       *string    `db:"notes"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

// SkillExperience is an evidenced snippet tying a skill to a concrete role.
type SkillExperience struct {
	ID          string     `db:"id"`
	AccountID   string     `db:"account_id"`
	SkillName   string     `db:"skill_name"`
	RoleTitle   string     `db:"role_title"`
	Description string     `db:"description"`
	Keywords    []string   `db:"keywords"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

// ResumeExtraction is raw text pulled out of an uploaded resume document.
type ResumeExtraction struct {
	ID        string    `db:"id"`
	ResumeID  string    `db:"resume_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}
