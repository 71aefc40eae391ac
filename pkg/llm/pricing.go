package llm

import (
	"github.com/rs/zerolog/log"
)

// ModelPrice is expressed in dollars per million tokens.
type ModelPrice struct {
	Input  float64 `mapstructure:"input" yaml:"input"`
	Output float64 `mapstructure:"output" yaml:"output"`
}

// PriceTable maps model names to their token prices.
type PriceTable map[string]ModelPrice

func DefaultPriceTable() PriceTable {
	return PriceTable{
		"gpt-4o":         {Input: 5, Output: 15},
		"gpt-4-turbo":    {Input: 10, Output: 30},
		"gpt-4":          {Input: 30, Output: 60},
		"gpt-4-32k-0613": {Input: 60, Output: 120},
		"gpt-3.5-turbo":  {Input: 0.5, Output: 1.5},
		"gemini-1.5-pro": {Input: 3.5, Output: 10.5},
	}
}

// Cost returns the price of a completion. The second return value is false when
// the model has no price entry, in which case the cost is zero.
func (p PriceTable) Cost(model string, promptTokens, completionTokens int) (float64, bool) {
	price, ok := p[model]
	if !ok {
		return 0, false
	}
	return price.Input*float64(promptTokens)/1e6 + price.Output*float64(completionTokens)/1e6, true
}

// Ledger accumulates the estimated spend of a conversation.
type Ledger struct {
	prices PriceTable
	total  float64
}

func NewLedger(prices PriceTable) *Ledger {
	if prices == nil {
		prices = DefaultPriceTable()
	}
	return &Ledger{prices: prices}
}

// Add records one completion and returns its cost. Unknown models are logged and cost nothing.
func (l *Ledger) Add(model string, c *Completion) float64 {
	if c == nil {
		return 0
	}
	cost, ok := l.prices.Cost(model, c.PromptTokens, c.CompletionTokens)
	if !ok {
		log.Warn().Str("model", model).Msg("model price missing, attributing zero cost")
		return 0
	}
	l.total += cost
	return cost
}

func (l *Ledger) Total() float64 {
	return l.total
}

func (l *Ledger) Reset() {
	l.total = 0
}
