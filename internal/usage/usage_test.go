package usage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/adapter/memory"
	"studio/internal/domain"
	"studio/internal/infra"
)

func TestComputeCost(t *testing.T) {
	table := NewPricingTable(Rate{PerItem: 100000}, []PricingEntry{
		{Provider: "openai", Model: "gpt-4o-mini", Rate: Rate{InputPer1K: 150, OutputPer1K: 600}},
		{Provider: "qwen", Model: "*", Rate: Rate{PerItem: 30000}},
	})
	acct := NewAccountant(table, memory.NewUsageRepository(), infra.NopLogger())

	tests := []struct {
		name     string
		provider string
		model    string
		counters domain.UsageCounters
		want     int64
	}{
		{"exact token rate", "openai", "gpt-4o-mini", domain.UsageCounters{InputUnits: 2000, OutputUnits: 1000}, 300 + 600},
		{"rounds up", "openai", "gpt-4o-mini", domain.UsageCounters{InputUnits: 1}, 1},
		{"case insensitive", "OpenAI", " GPT-4o-mini ", domain.UsageCounters{OutputUnits: 1000}, 600},
		{"provider wildcard", "qwen", "qwen-image-max", domain.UsageCounters{Items: 2}, 60000},
		{"default rate", "acme", "v1", domain.UsageCounters{Items: 1}, 100000},
		{"zero counters", "openai", "gpt-4o-mini", domain.UsageCounters{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := acct.ComputeCost(tt.provider, tt.model, tt.counters)
			if got != tt.want {
				t.Fatalf("ComputeCost = %d, want %d", got, tt.want)
			}
			if again := acct.ComputeCost(tt.provider, tt.model, tt.counters); again != got {
				t.Fatalf("ComputeCost not deterministic: %d vs %d", again, got)
			}
		})
	}
}

func TestDefaultPricingNeverUnderbillsUnknown(t *testing.T) {
	table := DefaultPricing()
	def := table.Default()
	for _, e := range table.Entries() {
		assert.LessOrEqual(t, e.PerItem, def.PerItem, e.Provider+"/"+e.Model)
		assert.LessOrEqual(t, e.InputPer1K, def.InputPer1K, e.Provider+"/"+e.Model)
		assert.LessOrEqual(t, e.OutputPer1K, def.OutputPer1K, e.Provider+"/"+e.Model)
	}
}

func TestLogAppendsAndAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsageRepository()
	acct := NewAccountant(DefaultPricing(), repo, infra.NopLogger())

	rec := acct.Log(ctx, domain.UsageRecord{
		OwnerID:  "owner",
		JobID:    "job",
		Kind:     domain.KindImage,
		Provider: "qwen",
		Model:    "qwen-image-plus",
		Counters: domain.UsageCounters{Items: 1},
	})
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(30000), rec.CostMicros)

	acct.Log(ctx, domain.UsageRecord{OwnerID: "owner", Provider: "qwen", Model: "qwen-image-plus", Counters: domain.UsageCounters{Items: 1}})

	total, err := acct.TotalSpend(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), total)
	assert.Len(t, repo.Records(), 2)

	recent, err := acct.Recent(ctx, "owner", 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestLoadPricing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.json")
	body := `{"default":{"per_item_micros":90000},"rates":[{"provider":"gemini","model":"","input_per_1k_micros":100}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	table, err := LoadPricing(path)
	require.NoError(t, err)
	rate, known := table.Lookup("gemini", "anything")
	assert.True(t, known)
	assert.Equal(t, int64(100), rate.InputPer1K)
	assert.Equal(t, int64(90000), table.Default().PerItem)
}

func TestParsePricingRejects(t *testing.T) {
	bad := map[string]string{
		"no default":  `{"rates":[]}`,
		"no provider": `{"default":{"per_item_micros":1},"rates":[{"model":"x"}]}`,
		"negative":    `{"default":{"per_item_micros":1},"rates":[{"provider":"a","per_item_micros":-1}]}`,
		"not json":    `nope`,
	}
	for name, body := range bad {
		if _, err := ParsePricing([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
