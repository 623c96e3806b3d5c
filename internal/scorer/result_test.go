package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatchResultValid(t *testing.T) {
	got, err := ParseMatchResult(validResponse(0.75))
	require.NoError(t, err)

	assert.Equal(t, 0.75, got.MatchScore)
	assert.Equal(t, []string{"react", "typescript"}, got.KeywordsFound)
	assert.Equal(t, []string{"kubernetes"}, got.KeywordsMissing)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "React", got.Evidence[0].Skill)
	assert.Equal(t, 0.9, got.Breakdown.SkillsAlignment)
}

func TestParseMatchResultStripsFences(t *testing.T) {
	raw := "```json\n" + validResponse(0.5) + "\n```"
	got, err := ParseMatchResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.MatchScore)
}

func TestParseMatchResultExtractsEmbeddedObject(t *testing.T) {
	raw := "Here is the evaluation you asked for:\n" + validResponse(0.5) + "\nLet me know if you need anything else."
	got, err := ParseMatchResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.MatchScore)
}

func TestParseMatchResultClampsScores(t *testing.T) {
	got, err := ParseMatchResult(validResponse(3.2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.MatchScore)

	got, err = ParseMatchResult(validResponse(-1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.MatchScore)
}

func TestParseMatchResultClampsBreakdown(t *testing.T) {
	raw := `{
		"match_score": 0.5,
		"score_breakdown": {"skills_alignment": 1.8, "experience_relevance": -0.3, "domain_fit": 0.5, "format_quality": 0.5},
		"evidence": [{"skill": "Go", "job_fragment": "Go", "resume_fragment": "Go", "reasoning": "match"}]
	}`
	got, err := ParseMatchResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Breakdown.SkillsAlignment)
	assert.Equal(t, 0.0, got.Breakdown.ExperienceRelevance)
}

func TestParseMatchResultRejectsMissingEvidence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "no evidence field", raw: `{"match_score": 0.5}`},
		{name: "empty evidence array", raw: `{"match_score": 0.5, "evidence": []}`},
		{name: "blank skill", raw: `{"match_score": 0.5, "evidence": [{"skill": "  ", "job_fragment": "x", "resume_fragment": "y", "reasoning": "z"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMatchResult(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseMatchResultRejectsNonJSON(t *testing.T) {
	_, err := ParseMatchResult("I cannot evaluate this candidate.")
	assert.Error(t, err)
}
