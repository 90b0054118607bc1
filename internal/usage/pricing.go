package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Micros is a monetary amount in millionths of a US dollar.
type Micros = int64

// Rate prices one (provider, model) pair. Token rates apply per 1000 units.
type Rate struct {
	InputPer1K  Micros `json:"input_per_1k_micros"`
	OutputPer1K Micros `json:"output_per_1k_micros"`
	PerItem     Micros `json:"per_item_micros"`
}

// Wildcard matches every model of a provider.
const Wildcard = "*"

type rateKey struct {
	provider string
	model    string
}

// PricingTable is built once and never mutated afterwards.
type PricingTable struct {
	rates    map[rateKey]Rate
	fallback Rate
}

// Lookup resolves the rate for a pair: exact match, then the provider
// wildcard, then the default rate.
func (p *PricingTable) Lookup(provider, model string) (Rate, bool) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.ToLower(strings.TrimSpace(model))
	if r, ok := p.rates[rateKey{provider, model}]; ok {
		return r, true
	}
	if r, ok := p.rates[rateKey{provider, Wildcard}]; ok {
		return r, true
	}
	return p.fallback, false
}

// Default returns the rate applied to unknown pairs.
func (p *PricingTable) Default() Rate {
	return p.fallback
}

// Len reports how many explicit entries the table holds.
func (p *PricingTable) Len() int {
	return len(p.rates)
}

// Entries lists the explicit entries, for display.
func (p *PricingTable) Entries() []PricingEntry {
	out := make([]PricingEntry, 0, len(p.rates))
	for k, r := range p.rates {
		out = append(out, PricingEntry{Provider: k.provider, Model: k.model, Rate: r})
	}
	return out
}

// PricingEntry is the file representation of one rate.
type PricingEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Rate
}

type pricingFile struct {
	Default Rate           `json:"default"`
	Rates   []PricingEntry `json:"rates"`
}

// NewPricingTable builds a table from entries. Later duplicates win.
func NewPricingTable(fallback Rate, entries []PricingEntry) *PricingTable {
	t := &PricingTable{rates: make(map[rateKey]Rate, len(entries)), fallback: fallback}
	for _, e := range entries {
		key := rateKey{
			provider: strings.ToLower(strings.TrimSpace(e.Provider)),
			model:    strings.ToLower(strings.TrimSpace(e.Model)),
		}
		if key.model == "" {
			key.model = Wildcard
		}
		t.rates[key] = e.Rate
	}
	return t
}

// DefaultPricing returns the built-in table. The default rate is set above
// every listed rate so unknown pairs are never under-billed.
func DefaultPricing() *PricingTable {
	return NewPricingTable(
		Rate{InputPer1K: 30000, OutputPer1K: 15000, PerItem: 80000},
		[]PricingEntry{
			{Provider: "gemini", Model: "gemini-2.5-flash", Rate: Rate{InputPer1K: 300, OutputPer1K: 2500}},
			{Provider: "gemini", Model: "gemini-2.5-flash-image", Rate: Rate{PerItem: 39000}},
			{Provider: "gemini", Model: Wildcard, Rate: Rate{InputPer1K: 1250, OutputPer1K: 10000, PerItem: 39000}},
			{Provider: "openai", Model: "gpt-4o-mini", Rate: Rate{InputPer1K: 150, OutputPer1K: 600}},
			{Provider: "openai", Model: "tts-1", Rate: Rate{InputPer1K: 15000}},
			{Provider: "openai", Model: Wildcard, Rate: Rate{InputPer1K: 2500, OutputPer1K: 10000}},
			{Provider: "qwen", Model: "qwen-image-plus", Rate: Rate{PerItem: 30000}},
			{Provider: "qwen", Model: Wildcard, Rate: Rate{PerItem: 40000}},
			{Provider: "elevenlabs", Model: Wildcard, Rate: Rate{InputPer1K: 30000}},
			{Provider: "pollinations", Model: Wildcard, Rate: Rate{}},
		},
	)
}

// LoadPricing reads a JSON pricing file of the form
// {"default": {...}, "rates": [{"provider": "...", "model": "...", ...}]}.
func LoadPricing(path string) (*PricingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}
	return ParsePricing(raw)
}

// ParsePricing decodes the pricing file format.
func ParsePricing(raw []byte) (*PricingTable, error) {
	var f pricingFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode pricing file: %w", err)
	}
	if f.Default == (Rate{}) {
		return nil, fmt.Errorf("pricing file: default rate is required")
	}
	for i, e := range f.Rates {
		if strings.TrimSpace(e.Provider) == "" {
			return nil, fmt.Errorf("pricing file: rate %d has no provider", i)
		}
		if e.InputPer1K < 0 || e.OutputPer1K < 0 || e.PerItem < 0 {
			return nil, fmt.Errorf("pricing file: rate %d is negative", i)
		}
	}
	return NewPricingTable(f.Default, f.Rates), nil
}
