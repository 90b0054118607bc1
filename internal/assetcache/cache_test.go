package assetcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/adapter/memory"
	"studio/internal/domain"
	"studio/internal/infra"
)

func TestFingerprintNormalization(t *testing.T) {
	base := Fingerprint("A red fox", domain.KindImage, "qwen-image-plus")
	cases := []string{"a red fox", "  A RED FOX  ", "\tA red fox\n"}
	for _, prompt := range cases {
		if got := Fingerprint(prompt, domain.KindImage, "qwen-image-plus"); got != base {
			t.Fatalf("Fingerprint(%q) = %q, want %q", prompt, got, base)
		}
	}
	if got := Fingerprint(normalize("  A red fox "), domain.KindImage, "qwen-image-plus"); got != base {
		t.Fatalf("fingerprint of normalized prompt differs")
	}
}

func TestFingerprintDiscriminators(t *testing.T) {
	base := Fingerprint("fox", domain.KindImage, "m1")
	others := []string{
		Fingerprint("fox", domain.KindAudio, "m1"),
		Fingerprint("fox", domain.KindImage, "m2"),
		Fingerprint("fox cub", domain.KindImage, "m1"),
	}
	for _, fp := range others {
		if fp == base {
			t.Fatalf("expected distinct fingerprint, got %q twice", fp)
		}
	}
	if len(base) != 64 {
		t.Fatalf("len = %d, want 64", len(base))
	}
}

func TestGetAfterSet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCacheRepository()
	cache := New(repo, infra.NopLogger())
	touched := make(chan string, 1)
	cache.touched = func(fp string) { touched <- fp }

	_, ok := cache.Get(ctx, "fox", domain.KindImage, "m1")
	assert.False(t, ok)

	cache.Set(ctx, "fox", domain.KindImage, "m1", "http://cdn/fox.png")
	url, ok := cache.Get(ctx, "  FOX ", domain.KindImage, "m1")
	require.True(t, ok)
	assert.Equal(t, "http://cdn/fox.png", url)

	select {
	case fp := <-touched:
		assert.Equal(t, Fingerprint("fox", domain.KindImage, "m1"), fp)
	case <-time.After(2 * time.Second):
		t.Fatal("touch not observed")
	}
	entry, err := repo.Lookup(ctx, Fingerprint("fox", domain.KindImage, "m1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.HitCount)
	assert.Equal(t, "http://cdn/fox.png", entry.ArtifactURL)
}

func TestSetIgnoresEmptyURL(t *testing.T) {
	ctx := context.Background()
	cache := New(memory.NewCacheRepository(), infra.NopLogger())
	cache.Set(ctx, "fox", domain.KindImage, "m1", " ")
	_, ok := cache.Get(ctx, "fox", domain.KindImage, "m1")
	assert.False(t, ok)
}

type brokenRepo struct{}

func (brokenRepo) Lookup(context.Context, string) (*domain.CacheEntry, error) {
	return nil, errors.New("connection reset")
}
func (brokenRepo) Upsert(context.Context, *domain.CacheEntry) error { return errors.New("read only") }
func (brokenRepo) Touch(context.Context, string, time.Time) error   { return nil }

func TestStorageErrorsAreMisses(t *testing.T) {
	cache := New(brokenRepo{}, infra.NopLogger())
	cache.Set(context.Background(), "fox", domain.KindImage, "m1", "http://x")
	_, ok := cache.Get(context.Background(), "fox", domain.KindImage, "m1")
	assert.False(t, ok)
}
