// Package image holds the image-kind generation providers.
package image

import (
	"context"

	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/providers/gemini"
)

// ProviderGemini is the provider name of the Gemini image integration.
const ProviderGemini = "gemini"

type geminiImageClient interface {
	GenerateImage(ctx context.Context, apiKey string, req gemini.ImageRequest) (*gemini.Image, error)
	Model() string
}

// GeminiImage renders a scene through an image-capable Gemini model and
// returns the image inline. An overloaded model gets one more attempt.
type GeminiImage struct {
	client      geminiImageClient
	aspectRatio string
}

func NewGeminiImage(client geminiImageClient) *GeminiImage {
	return &GeminiImage{client: client, aspectRatio: "16:9"}
}

func (g *GeminiImage) Name() string { return ProviderGemini }

func (g *GeminiImage) Model() string { return g.client.Model() }

func (g *GeminiImage) Kind() domain.GenerationKind { return domain.KindImage }

func (g *GeminiImage) Configured(req generation.Request) bool {
	return g.client != nil && req.Credential(ProviderGemini) != ""
}

func (g *GeminiImage) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	imageReq := gemini.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: g.aspectRatio,
		Locale:      req.Locale,
	}
	img, err := g.client.GenerateImage(ctx, req.Credential(ProviderGemini), imageReq)
	if gemini.IsTransient(err) && ctx.Err() == nil {
		img, err = g.client.GenerateImage(ctx, req.Credential(ProviderGemini), imageReq)
	}
	if err != nil {
		return nil, err
	}
	return generation.InlineResponse{
		Meta: generation.Meta{
			Model: g.client.Model(),
			Counters: domain.UsageCounters{
				InputUnits:  img.PromptTokens,
				OutputUnits: img.OutputTokens,
				Items:       1,
			},
		},
		Data:     img.Data,
		Base64:   img.Base64,
		MIMEType: img.MIMEType,
	}, nil
}

var _ generation.Provider = (*GeminiImage)(nil)
