package budget

import "github.com/shopspring/decimal"

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// CostForInput calculates the cost of the prompt tokens of one call.
func (p ModelPricing) CostForInput(promptTokens int) decimal.Decimal {
	return decimal.NewFromInt(int64(promptTokens)).Mul(p.InputPerMTok).Div(million)
}

// CostForOutput calculates the cost of the completion tokens of one call.
func (p ModelPricing) CostForOutput(completionTokens int) decimal.Decimal {
	return decimal.NewFromInt(int64(completionTokens)).Mul(p.OutputPerMTok).Div(million)
}

// DefaultPricing contains built-in pricing (USD per million tokens).
// Can be overridden via WithPricing().
var DefaultPricing = map[string]ModelPricing{
	"gpt-4o": {
		InputPerMTok:  decimal.NewFromFloat(2.5),
		OutputPerMTok: decimal.NewFromFloat(10),
	},
	"gpt-4o-mini": {
		InputPerMTok:  decimal.NewFromFloat(0.15),
		OutputPerMTok: decimal.NewFromFloat(0.6),
	},
	"gpt-4.1": {
		InputPerMTok:  decimal.NewFromFloat(2),
		OutputPerMTok: decimal.NewFromFloat(8),
	},
	"gpt-4.1-mini": {
		InputPerMTok:  decimal.NewFromFloat(0.4),
		OutputPerMTok: decimal.NewFromFloat(1.6),
	},
	"o4-mini": {
		InputPerMTok:  decimal.NewFromFloat(1.1),
		OutputPerMTok: decimal.NewFromFloat(4.4),
	},
}
