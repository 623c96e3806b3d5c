package scorer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MatchResult is the validated, strongly typed form of the provider output.
// Parse-or-reject happens once at this boundary; nothing downstream re-trusts
// the raw shape.
type MatchResult struct {
	MatchScore      float64        `json:"match_score"`
	KeywordsFound   []string       `json:"keywords_found"`
	KeywordsMissing []string       `json:"keywords_missing"`
	Warnings        []string       `json:"warnings"`
	Recommendations []string       `json:"recommendations"`
	Breakdown       ScoreBreakdown `json:"score_breakdown"`
	Evidence        []Evidence     `json:"evidence"`
}

type ScoreBreakdown struct {
	SkillsAlignment     float64 `json:"skills_alignment"`
	ExperienceRelevance float64 `json:"experience_relevance"`
	DomainFit           float64 `json:"domain_fit"`
	FormatQuality       float64 `json:"format_quality"`
}

type Evidence struct {
	Skill          string `json:"skill"`
	JobFragment    string `json:"job_fragment"`
	ResumeFragment string `json:"resume_fragment"`
	Reasoning      string `json:"reasoning"`
}

// ParseMatchResult validates raw provider output into a MatchResult. Every
// probability-like field is clamped into [0,1] defensively, even though the
// schema should already enforce bounds.
func ParseMatchResult(raw string) (*MatchResult, error) {
	cleaned := extractJSON(raw)

	var result MatchResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parse match result: %w", err)
	}

	if len(result.Evidence) == 0 {
		return nil, fmt.Errorf("match result has no evidence entries")
	}
	for i, ev := range result.Evidence {
		if strings.TrimSpace(ev.Skill) == "" {
			return nil, fmt.Errorf("evidence entry %d has no skill", i)
		}
	}

	result.MatchScore = clamp01(result.MatchScore)
	result.Breakdown.SkillsAlignment = clamp01(result.Breakdown.SkillsAlignment)
	result.Breakdown.ExperienceRelevance = clamp01(result.Breakdown.ExperienceRelevance)
	result.Breakdown.DomainFit = clamp01(result.Breakdown.DomainFit)
	result.Breakdown.FormatQuality = clamp01(result.Breakdown.FormatQuality)

	return &result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractJSON strips markdown code fences and leading/trailing prose around
// the outermost JSON object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
