package provider

// defaultPricing is USD per one million tokens. Models missing from the
// table yield a nil cost estimate, never a guessed number.
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":        {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"gpt-4o-mini":   {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4.1":       {InputPerMTok: 2.00, OutputPerMTok: 8.00},
	"gpt-4.1-mini":  {InputPerMTok: 0.40, OutputPerMTok: 1.60},
	"gpt-4.1-nano":  {InputPerMTok: 0.10, OutputPerMTok: 0.40},
	"o3-mini":       {InputPerMTok: 1.10, OutputPerMTok: 4.40},
	"gpt-3.5-turbo": {InputPerMTok: 0.50, OutputPerMTok: 1.50},
}

// EstimateCost computes the USD cost of a completion, or nil when the model
// is not in the price table and no override is supplied.
func EstimateCost(model string, promptTokens, completionTokens int, override *ModelPricing) *float64 {
	pricing, ok := defaultPricing[model]
	if override != nil {
		pricing, ok = *override, true
	}
	if !ok {
		return nil
	}

	cost := float64(promptTokens)/1e6*pricing.InputPerMTok +
		float64(completionTokens)/1e6*pricing.OutputPerMTok
	return &cost
}
