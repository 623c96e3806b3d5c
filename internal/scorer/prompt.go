package scorer

import (
	"encoding/json"
	"fmt"
	"strings"

	"job-scorer/internal/models"
)

const scoringSystemPrompt = `You are an expert technical recruiter comparing a candidate profile against a job posting.

Score the match using this rubric:
- Skills alignment: 40%
- Experience relevance: 30%
- Domain fit: 20%
- Format quality: 10%

Every claimed match MUST be grounded in evidence: quote the exact posting fragment and the exact candidate fragment that support it. Never invent skills the candidate does not show.

Respond with JSON only, no prose and no markdown fences.`

// matchResultSchema is the strict output contract enforced on the provider.
// Evidence is a required field: ungrounded matches are rejected at the
// schema level, not just discouraged in the prompt.
var matchResultSchema = json.RawMessage(`{
	"type": "object",
	"additionalProperties": false,
	"required": ["match_score", "keywords_found", "keywords_missing", "warnings", "recommendations", "score_breakdown", "evidence"],
	"properties": {
		"match_score": {"type": "number", "minimum": 0, "maximum": 1},
		"keywords_found": {"type": "array", "items": {"type": "string"}},
		"keywords_missing": {"type": "array", "items": {"type": "string"}},
		"warnings": {"type": "array", "items": {"type": "string"}},
		"recommendations": {"type": "array", "items": {"type": "string"}},
		"score_breakdown": {
			"type": "object",
			"additionalProperties": false,
			"required": ["skills_alignment", "experience_relevance", "domain_fit", "format_quality"],
			"properties": {
				"skills_alignment": {"type": "number", "minimum": 0, "maximum": 1},
				"experience_relevance": {"type": "number", "minimum": 0, "maximum": 1},
				"domain_fit": {"type": "number", "minimum": 0, "maximum": 1},
				"format_quality": {"type": "number", "minimum": 0, "maximum": 1}
			}
		},
		"evidence": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["skill", "job_fragment", "resume_fragment", "reasoning"],
				"properties": {
					"skill": {"type": "string"},
					"job_fragment": {"type": "string"},
					"resume_fragment": {"type": "string"},
					"reasoning": {"type": "string"}
				}
			}
		}
	}
}`)

// retryHint is appended to the user prompt when the previous response failed
// application-level validation.
const retryHint = "\n\nYour previous response was invalid JSON or missed required fields. Return ONLY a JSON object conforming exactly to the requested schema, including at least one evidence entry."

func buildScoringPrompt(posting *models.Posting, baselineText string) string {
	var sb strings.Builder

	sb.WriteString("## JOB POSTING\n")
	fmt.Fprintf(&sb, "Title: %s\n", posting.Title)
	if posting.Company != "" {
		fmt.Fprintf(&sb, "Company: %s\n", posting.Company)
	}
	sb.WriteString("\n")
	sb.WriteString(posting.Description)
	sb.WriteString("\n\n## CANDIDATE PROFILE\n")
	sb.WriteString(baselineText)
	sb.WriteString("\n\nEvaluate the candidate against the posting and return the JSON result.")

	return sb.String()
}
