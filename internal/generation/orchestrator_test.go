package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/adapter/memory"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/prompt"
	"studio/internal/usage"
)

type fakeProvider struct {
	name       string
	kind       domain.GenerationKind
	configured bool
	resp       Response
	err        error
	panicMsg   string

	mu    sync.Mutex
	calls int
	seen  []Request
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) Model() string               { return f.name + "-model" }
func (f *fakeProvider) Kind() domain.GenerationKind { return f.kind }
func (f *fakeProvider) Configured(Request) bool     { return f.configured }

func (f *fakeProvider) Generate(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.resp, f.err
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memoryStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memoryStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = data
	return "http://files.test/" + key, nil
}

func newOrchestrator(t *testing.T, providers ...Provider) (*Orchestrator, *memory.UsageRepository) {
	t.Helper()
	repo := memory.NewUsageRepository()
	acct := usage.NewAccountant(usage.DefaultPricing(), repo, infra.NopLogger())
	o := NewOrchestrator(Options{
		Providers: providers,
		Store:     &memoryStore{},
		Usage:     acct,
		Logger:    infra.NopLogger(),
	})
	return o, repo
}

func TestFallsThroughToLastProvider(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindImage, configured: true, err: errors.New("rate limited")}
	p2 := &fakeProvider{name: "beta", kind: domain.KindImage, configured: true, resp: HostedResponse{URL: "not a url"}}
	p3 := &fakeProvider{name: "gamma", kind: domain.KindImage, configured: true, panicMsg: "nil map"}
	p4 := &fakeProvider{name: "delta", kind: domain.KindImage, configured: true, resp: HostedResponse{
		Meta: Meta{Model: "delta-v2", Counters: domain.UsageCounters{Items: 1}},
		URL:  "https://cdn.delta.test/a.png",
	}}
	o, repo := newOrchestrator(t, p1, p2, p3, p4)

	res, err := o.Generate(context.Background(), domain.KindImage, Request{OwnerID: "owner", JobID: "job", Prompt: "fox"})
	require.NoError(t, err)
	assert.Equal(t, "delta", res.Provider)
	assert.Equal(t, "delta-v2", res.Model)
	assert.Equal(t, "https://cdn.delta.test/a.png", res.ArtifactURL)

	records := repo.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "delta", records[0].Provider)
	assert.Equal(t, "job", records[0].JobID)
	assert.Equal(t, domain.KindImage, records[0].Kind)
	for _, p := range []*fakeProvider{p1, p2, p3, p4} {
		assert.Equal(t, 1, p.Calls(), p.name)
	}
}

func TestFirstSuccessShortCircuits(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindText, configured: true, resp: TextResponse{Text: " hello "}}
	p2 := &fakeProvider{name: "beta", kind: domain.KindText, configured: true, resp: TextResponse{Text: "other"}}
	o, repo := newOrchestrator(t, p1, p2)

	res, err := o.Generate(context.Background(), domain.KindText, Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "alpha-model", res.Model)
	assert.Zero(t, p2.Calls())
	assert.Len(t, repo.Records(), 1)
}

func TestTextExhaustionReturnsPlaceholder(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindText, configured: true, err: errors.New("down")}
	p2 := &fakeProvider{name: "beta", kind: domain.KindText, configured: true, resp: TextResponse{Text: "   "}}
	o, repo := newOrchestrator(t, p1, p2)

	first, err := o.Generate(context.Background(), domain.KindText, Request{Prompt: "a story"})
	require.NoError(t, err)
	second, err := o.Generate(context.Background(), domain.KindText, Request{Prompt: "a story"})
	require.NoError(t, err)

	assert.True(t, first.Placeholder())
	assert.Equal(t, PlaceholderProvider, first.Provider)
	assert.Equal(t, first.Text, second.Text)
	assert.Empty(t, repo.Records())
}

func TestTextWithoutCredentialsReturnsPlaceholder(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindText}
	o, _ := newOrchestrator(t, p1)
	res, err := o.Generate(context.Background(), domain.KindText, Request{Prompt: "x"})
	require.NoError(t, err)
	assert.True(t, res.Placeholder())
	assert.Zero(t, p1.Calls())
}

func TestImageExhaustionIsHardFailure(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindImage, configured: true, err: errors.New("down")}
	p2 := &fakeProvider{name: "beta", kind: domain.KindImage, configured: true, resp: InlineResponse{Base64: "!!!"}}
	o, repo := newOrchestrator(t, p1, p2)

	_, err := o.Generate(context.Background(), domain.KindImage, Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Empty(t, repo.Records())
}

func TestNoConfiguredProviders(t *testing.T) {
	p1 := &fakeProvider{name: "alpha", kind: domain.KindAudio}
	o, _ := newOrchestrator(t, p1)
	_, err := o.Generate(context.Background(), domain.KindAudio, Request{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrNoProviders)

	_, err = o.Generate(context.Background(), domain.KindImage, Request{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrNoProviders)

	_, err = o.Generate(context.Background(), domain.GenerationKind("video"), Request{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestInlinePayloadIsPersisted(t *testing.T) {
	store := &memoryStore{}
	p := &fakeProvider{name: "speech", kind: domain.KindAudio, configured: true, resp: InlineResponse{
		Data:     []byte("ID3"),
		MIMEType: "audio/mpeg",
	}}
	o := NewOrchestrator(Options{Providers: []Provider{p}, Store: store, Logger: infra.NopLogger()})

	res, err := o.Generate(context.Background(), domain.KindAudio, Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ArtifactURL, "http://files.test/audio/"))
	assert.True(t, strings.HasSuffix(res.ArtifactURL, ".mp3"))
	require.Len(t, store.saved, 1)
}

func TestRedirectMustBeAbsolute(t *testing.T) {
	bad := &fakeProvider{name: "free", kind: domain.KindImage, configured: true, resp: RedirectResponse{Location: "/relative.png"}}
	o, _ := newOrchestrator(t, bad)
	_, err := o.Generate(context.Background(), domain.KindImage, Request{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestTextShapeRejectedForImage(t *testing.T) {
	p := &fakeProvider{name: "confused", kind: domain.KindImage, configured: true, resp: TextResponse{Text: "an image"}}
	o, _ := newOrchestrator(t, p)
	_, err := o.Generate(context.Background(), domain.KindImage, Request{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

type stubEnhancer struct {
	out string
	err error
}

func (s stubEnhancer) Enhance(context.Context, prompt.EnhanceRequest) (*prompt.EnhanceResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &prompt.EnhanceResponse{Prompt: s.out}, nil
}

func TestEnhancementPreStep(t *testing.T) {
	cases := []struct {
		name     string
		kind     domain.GenerationKind
		enhancer stubEnhancer
		want     string
	}{
		{"image rewritten", domain.KindImage, stubEnhancer{out: "fox, golden hour"}, "fox, golden hour"},
		{"failure keeps original", domain.KindImage, stubEnhancer{err: errors.New("timeout")}, "fox"},
		{"empty keeps original", domain.KindText, stubEnhancer{out: " "}, "fox"},
		{"audio untouched", domain.KindAudio, stubEnhancer{out: "rewritten"}, "fox"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp Response = HostedResponse{URL: "https://x.test/a"}
			if tc.kind == domain.KindText {
				resp = TextResponse{Text: "ok"}
			}
			p := &fakeProvider{name: "p", kind: tc.kind, configured: true, resp: resp}
			o := NewOrchestrator(Options{Providers: []Provider{p}, Enhancer: tc.enhancer, Logger: infra.NopLogger()})
			_, err := o.Generate(context.Background(), tc.kind, Request{Prompt: "fox"})
			require.NoError(t, err)
			require.Len(t, p.seen, 1)
			assert.Equal(t, tc.want, p.seen[0].Prompt)
		})
	}
}

func TestChainOrder(t *testing.T) {
	o, _ := newOrchestrator(t,
		&fakeProvider{name: "a", kind: domain.KindImage},
		&fakeProvider{name: "t", kind: domain.KindText},
		&fakeProvider{name: "b", kind: domain.KindImage},
	)
	assert.Equal(t, []string{"a", "b"}, o.Chain(domain.KindImage))
	assert.Equal(t, []string{"t"}, o.Chain(domain.KindText))
}
