package domain

import "time"

// CacheEntry maps a content fingerprint to a previously produced artifact.
// ArtifactURL is content; HitCount and LastUsedAt are metadata only.
type CacheEntry struct {
	Fingerprint string
	Kind        GenerationKind
	ArtifactURL string
	Model       string
	HitCount    int64
	LastUsedAt  time.Time
	CreatedAt   time.Time
}
