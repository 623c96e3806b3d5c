package provider

import (
	"encoding/json"
	"time"
)

// Request describes one model invocation. Models is an ordered candidate
// list: the first entry is the primary model, the rest are fallbacks used
// only when a model fails transiently (rate limit, server error, timeout).
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Models       []string

	// Optional strict output schema. When set, the completion is requested
	// in structured-output mode; if the backend rejects that mode the same
	// attempt is transparently retried without it.
	Schema     json.RawMessage
	SchemaName string

	Temperature     float64
	MaxOutputTokens int

	// MaxRetries (0–2) bounds the caller's retry-on-malformed-output loop.
	// The client itself only inspects HTTP-level outcomes; callers re-invoke
	// with a correction hint when returned content fails validation.
	MaxRetries int

	// TaskLabel names the caller's intent in logs.
	TaskLabel string

	// Pricing overrides the built-in price table for cost estimation.
	Pricing *ModelPricing
}

// Response is the outcome of a successful invocation.
type Response struct {
	Text             string
	ModelUsed        string
	Provider         string
	PromptTokens     int
	CompletionTokens int

	// EstimatedCostUSD is nil when no pricing data is known for the model.
	EstimatedCostUSD *float64

	Duration time.Duration

	// RetryAttempts counts extra attempts consumed against the model that
	// ultimately succeeded; attempts against exhausted fallback candidates
	// are not included.
	RetryAttempts int
}

// ModelPricing is USD per one million tokens.
type ModelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}
