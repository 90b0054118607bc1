// Package memory provides process-local implementations of the domain
// repositories. They back STORE=memory deployments and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// JobRepository stores jobs in a map guarded by a mutex.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
	now  func() time.Time
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]domain.Job), now: time.Now}
}

func (r *JobRepository) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = *job
	return nil
}

func (r *JobRepository) UpdateProgress(_ context.Context, jobID string, status domain.JobStatus, progress int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}
	job.Status = status
	job.Progress = progress
	job.Message = message
	job.UpdatedAt = r.now().UTC()
	r.jobs[jobID] = job
	return nil
}

func (r *JobRepository) MarkFailed(_ context.Context, jobID string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}
	job.Status = domain.JobStatusFailed
	job.Error = errMsg
	job.Message = errMsg
	job.UpdatedAt = r.now().UTC()
	r.jobs[jobID] = job
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// CreditRepository keeps balances and the transaction log in memory.
type CreditRepository struct {
	mu       sync.Mutex
	balances map[string]int64
	txs      []domain.CreditTransaction
}

func NewCreditRepository() *CreditRepository {
	return &CreditRepository{balances: make(map[string]int64)}
}

func (r *CreditRepository) Balance(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[ownerID], nil
}

func (r *CreditRepository) Deduct(_ context.Context, ownerID string, amount int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance := r.balances[ownerID]
	if balance < amount {
		return balance, false, nil
	}
	balance -= amount
	r.balances[ownerID] = balance
	return balance, true, nil
}

func (r *CreditRepository) Add(_ context.Context, ownerID string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[ownerID] += amount
	return r.balances[ownerID], nil
}

func (r *CreditRepository) AppendTransaction(_ context.Context, tx *domain.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	r.txs = append(r.txs, *tx)
	return nil
}

func (r *CreditRepository) ListTransactions(_ context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CreditTransaction
	for i := len(r.txs) - 1; i >= 0; i-- {
		if r.txs[i].OwnerID != ownerID {
			continue
		}
		out = append(out, r.txs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CacheRepository is a map-backed asset cache.
type CacheRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

func NewCacheRepository() *CacheRepository {
	return &CacheRepository{entries: make(map[string]domain.CacheEntry)}
}

func (r *CacheRepository) Lookup(_ context.Context, fingerprint string) (*domain.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (r *CacheRepository) Upsert(_ context.Context, entry *domain.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := r.entries[entry.Fingerprint]
	next := *entry
	next.LastUsedAt = now
	if ok {
		next.HitCount = existing.HitCount
		next.CreatedAt = existing.CreatedAt
	} else {
		next.HitCount = 0
		next.CreatedAt = now
	}
	r.entries[entry.Fingerprint] = next
	return nil
}

func (r *CacheRepository) Touch(_ context.Context, fingerprint string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[fingerprint]
	if !ok {
		return nil
	}
	entry.HitCount++
	entry.LastUsedAt = at
	r.entries[fingerprint] = entry
	return nil
}

// UsageRepository appends usage records and tracks per-owner spend.
type UsageRepository struct {
	mu      sync.Mutex
	records []domain.UsageRecord
	spend   map[string]int64
}

func NewUsageRepository() *UsageRepository {
	return &UsageRepository{spend: make(map[string]int64)}
}

func (r *UsageRepository) Append(_ context.Context, rec *domain.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *UsageRepository) AddSpend(_ context.Context, ownerID string, micros int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spend[ownerID] += micros
	return nil
}

func (r *UsageRepository) TotalSpend(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spend[ownerID], nil
}

func (r *UsageRepository) ListRecent(_ context.Context, ownerID string, limit int) ([]domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UsageRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].OwnerID != ownerID {
			continue
		}
		out = append(out, r.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Records returns a copy of every stored record.
func (r *UsageRepository) Records() []domain.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UsageRecord(nil), r.records...)
}

// SceneRepository holds scenes keyed by id.
type SceneRepository struct {
	mu     sync.RWMutex
	scenes map[string]domain.Scene
}

func NewSceneRepository() *SceneRepository {
	return &SceneRepository{scenes: make(map[string]domain.Scene)}
}

func (r *SceneRepository) ListByProject(_ context.Context, projectID, ownerID string) ([]domain.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Scene
	for _, s := range r.scenes {
		if s.ProjectID == projectID && s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *SceneRepository) ReplaceForProject(_ context.Context, projectID, ownerID string, scenes []domain.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.scenes {
		if s.ProjectID == projectID && s.OwnerID == ownerID {
			delete(r.scenes, id)
		}
	}
	now := time.Now().UTC()
	for i := range scenes {
		s := &scenes[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.ProjectID = projectID
		s.OwnerID = ownerID
		s.CreatedAt = now
		s.UpdatedAt = now
		r.scenes[s.ID] = *s
	}
	return nil
}

func (r *SceneRepository) SetArtifact(_ context.Context, sceneID string, kind domain.GenerationKind, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scenes[sceneID]
	if !ok {
		return domain.ErrNotFound
	}
	switch kind {
	case domain.KindImage:
		s.ImageURL = url
	case domain.KindAudio:
		s.AudioURL = url
	default:
		return domain.ErrUnsupportedKind
	}
	s.UpdatedAt = time.Now().UTC()
	r.scenes[sceneID] = s
	return nil
}

var (
	_ domain.JobRepository    = (*JobRepository)(nil)
	_ domain.CreditRepository = (*CreditRepository)(nil)
	_ domain.CacheRepository  = (*CacheRepository)(nil)
	_ domain.UsageRepository  = (*UsageRepository)(nil)
	_ domain.SceneRepository  = (*SceneRepository)(nil)
)
