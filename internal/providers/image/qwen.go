package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/providers/qwen"
)

// ProviderQwen is the provider name of the DashScope integration.
const ProviderQwen = "qwen"

type qwenImageClient interface {
	GenerateImage(ctx context.Context, apiKey string, req qwen.ImageRequest) (*qwen.ImageAsset, error)
	Model() string
}

// QwenImage calls DashScope's Qwen image model. DashScope links expire, so
// the downloaded bytes are returned inline for the artifact store to keep.
type QwenImage struct {
	client         qwenImageClient
	negativePrompt string
}

func NewQwenImage(client qwenImageClient) *QwenImage {
	return &QwenImage{
		client:         client,
		negativePrompt: "blurry, low quality, watermark, text artifacts",
	}
}

func (q *QwenImage) Name() string { return ProviderQwen }

func (q *QwenImage) Model() string { return q.client.Model() }

func (q *QwenImage) Kind() domain.GenerationKind { return domain.KindImage }

func (q *QwenImage) Configured(req generation.Request) bool {
	return q.client != nil && req.Credential(ProviderQwen) != ""
}

func (q *QwenImage) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	imageReq := qwen.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: q.negativePrompt,
		Seed:           deterministicSeed(req.JobID, req.Locale, prompt),
	}
	asset, err := q.invoke(ctx, req.Credential(ProviderQwen), imageReq)
	if err != nil {
		return nil, err
	}
	return generation.InlineResponse{
		Meta: generation.Meta{
			Model:    q.client.Model(),
			Counters: domain.UsageCounters{Items: 1},
		},
		Data:     asset.Data,
		MIMEType: asset.MIMEType,
	}, nil
}

// invoke retries once with a simplified request when DashScope reports a
// transient failure.
func (q *QwenImage) invoke(ctx context.Context, apiKey string, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	asset, err := q.client.GenerateImage(ctx, apiKey, req)
	if err == nil {
		return asset, nil
	}
	if !qwen.IsTransient(err) {
		return nil, err
	}
	simplified := req
	simplified.NegativePrompt = ""
	return q.client.GenerateImage(ctx, apiKey, simplified)
}

func deterministicSeed(values ...any) int {
	if len(values) == 0 {
		return 0
	}
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	n := binary.BigEndian.Uint32(sum[:4])
	value := int(n % 2147483647)
	if value <= 0 {
		fallback := binary.BigEndian.Uint32(sum[4:8]) % 2147483647
		if fallback == 0 {
			fallback = 1
		}
		value = int(fallback)
	}
	return value
}

var _ generation.Provider = (*QwenImage)(nil)
