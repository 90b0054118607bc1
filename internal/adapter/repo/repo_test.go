package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

type scanFunc func(dest ...any) error

type stubRow struct {
	scan scanFunc
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubExecutor answers QueryRow calls from a queue and records Exec calls.
type stubExecutor struct {
	rows    []scanFunc
	queries []string
	execs   []string
	execArg [][]any
	tag     pgconn.CommandTag
	execErr error
	// failExec makes the nth Exec (1-based) fail with execErr.
	failExec int
	txs      int
	txExecs  int
	inTx     bool
}

func (s *stubExecutor) InTx(ctx context.Context, fn func(tx infra.SQLExecutor) error) error {
	s.txs++
	s.inTx = true
	defer func() { s.inTx = false }()
	return fn(s)
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, query)
	s.execArg = append(s.execArg, args)
	if s.inTx {
		s.txExecs++
	}
	if s.failExec > 0 {
		if len(s.execs) == s.failExec {
			return pgconn.CommandTag{}, s.execErr
		}
		return s.tag, nil
	}
	return s.tag, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	if len(s.rows) == 0 {
		return stubRow{}
	}
	next := s.rows[0]
	s.rows = s.rows[1:]
	return stubRow{scan: next}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

const (
	jobID     = "3f1c2a9e-8b7d-4c6e-9a51-2d4f6b8e0c13"
	missingID = "7a2e4c61-0d9b-4f3a-8c25-6e1b9d0f4a72"
	sceneID   = "c94d1e07-5a3b-4e8f-b216-0f7c3a9d5e48"
)

func jobRow(status domain.JobStatus) scanFunc {
	return func(dest ...any) error {
		*dest[0].(*string) = jobID
		*dest[1].(*string) = "owner-1"
		*dest[2].(*string) = string(domain.JobKindAssetBatch)
		*dest[3].(*string) = string(status)
		*dest[4].(*int) = 100
		*dest[5].(*string) = "done"
		*dest[6].(*string) = ""
		*dest[7].(*time.Time) = time.Unix(0, 0)
		*dest[8].(*time.Time) = time.Unix(0, 0)
		return nil
	}
}

func TestJobCreateFillsTimestamps(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &stubExecutor{rows: []scanFunc{func(dest ...any) error {
		*dest[0].(*time.Time) = now
		*dest[1].(*time.Time) = now
		return nil
	}}}
	repo := NewJobRepository(exec)
	job := &domain.Job{ID: jobID, OwnerID: "owner-1", Kind: domain.JobKindAssetBatch, Status: domain.JobStatusPending}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !job.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", job.CreatedAt, now)
	}
	if exec.queries[0] != sqlinline.QInsertJob {
		t.Fatalf("unexpected query %q", exec.queries[0])
	}
}

func TestJobUpdateOnFinishedJob(t *testing.T) {
	// First row: guarded update matches nothing. Second row: lookup.
	exec := &stubExecutor{rows: []scanFunc{nil, jobRow(domain.JobStatusCompleted)}}
	repo := NewJobRepository(exec)
	err := repo.UpdateProgress(context.Background(), jobID, domain.JobStatusRunning, 50, "late")
	if !errors.Is(err, domain.ErrJobFinished) {
		t.Fatalf("err = %v, want ErrJobFinished", err)
	}
}

func TestJobMarkFailedUnknownJob(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{})
	err := repo.MarkFailed(context.Background(), missingID, "boom")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestJobGetByID(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{rows: []scanFunc{jobRow(domain.JobStatusCompleted)}})
	job, err := repo.GetByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if job.Status != domain.JobStatusCompleted || job.Kind != domain.JobKindAssetBatch {
		t.Fatalf("job = %+v", job)
	}
}

func TestJobMalformedIDIsNotFound(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewJobRepository(exec)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "", "{" + jobID + "}", strings.ReplaceAll(jobID, "-", "")} {
		if _, err := repo.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetByID(%q) err = %v, want ErrNotFound", id, err)
		}
		if err := repo.UpdateProgress(ctx, id, domain.JobStatusRunning, 10, ""); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("UpdateProgress(%q) err = %v, want ErrNotFound", id, err)
		}
		if err := repo.MarkFailed(ctx, id, "boom"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("MarkFailed(%q) err = %v, want ErrNotFound", id, err)
		}
	}
	if len(exec.queries) != 0 {
		t.Fatalf("queries = %d, want none sent for malformed ids", len(exec.queries))
	}
}

func TestCreditDeductInsufficient(t *testing.T) {
	repo := NewCreditRepository(&stubExecutor{})
	balance, ok, err := repo.Deduct(context.Background(), "owner-1", 10)
	if err != nil {
		t.Fatalf("Deduct error: %v", err)
	}
	if ok || balance != 0 {
		t.Fatalf("Deduct = (%d, %v), want (0, false)", balance, ok)
	}
}

func TestCreditBalanceWithoutAccount(t *testing.T) {
	repo := NewCreditRepository(&stubExecutor{})
	balance, err := repo.Balance(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestCreditDeductReturnsBalance(t *testing.T) {
	exec := &stubExecutor{rows: []scanFunc{func(dest ...any) error {
		*dest[0].(*int64) = 4
		return nil
	}}}
	balance, ok, err := NewCreditRepository(exec).Deduct(context.Background(), "owner-1", 6)
	if err != nil || !ok || balance != 4 {
		t.Fatalf("Deduct = (%d, %v, %v), want (4, true, nil)", balance, ok, err)
	}
}

func TestCacheLookupMiss(t *testing.T) {
	_, err := NewCacheRepository(&stubExecutor{}).Lookup(context.Background(), "fp")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUsageAppendPassesCounters(t *testing.T) {
	exec := &stubExecutor{}
	rec := &domain.UsageRecord{
		ID:         "u-1",
		OwnerID:    "owner-1",
		Kind:       domain.KindImage,
		Provider:   "qwen",
		Model:      "qwen-image-plus",
		CostMicros: 40000,
		Counters:   domain.UsageCounters{Items: 1},
	}
	if err := NewUsageRepository(exec).Append(context.Background(), rec); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	args := exec.execArg[0]
	if len(args) != 11 {
		t.Fatalf("args = %d, want 11", len(args))
	}
	if args[6] != int64(40000) || args[9] != int64(1) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestSceneSetArtifact(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewSceneRepository(exec)
	if err := repo.SetArtifact(context.Background(), sceneID, domain.KindAudio, "http://x/a.mp3"); err != nil {
		t.Fatalf("SetArtifact error: %v", err)
	}
	if exec.execs[0] != sqlinline.QSetSceneAudio {
		t.Fatalf("unexpected query %q", exec.execs[0])
	}

	if err := repo.SetArtifact(context.Background(), sceneID, domain.KindText, "x"); !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Fatalf("err = %v, want ErrUnsupportedKind", err)
	}

	missing := NewSceneRepository(&stubExecutor{tag: pgconn.NewCommandTag("UPDATE 0")})
	if err := missing.SetArtifact(context.Background(), missingID, domain.KindImage, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSceneReplaceAssignsIDs(t *testing.T) {
	exec := &stubExecutor{}
	scenes := []domain.Scene{{Sequence: 1, Title: "a"}, {Sequence: 2, Title: "b"}}
	if err := NewSceneRepository(exec).ReplaceForProject(context.Background(), "p-1", "owner-1", scenes); err != nil {
		t.Fatalf("ReplaceForProject error: %v", err)
	}
	if len(exec.execs) != 3 {
		t.Fatalf("execs = %d, want 3", len(exec.execs))
	}
	if exec.txs != 1 || exec.txExecs != 3 {
		t.Fatalf("txs = %d tx execs = %d, want all 3 statements in one transaction", exec.txs, exec.txExecs)
	}
	for _, s := range scenes {
		if strings.TrimSpace(s.ID) == "" {
			t.Fatalf("scene %d has no id", s.Sequence)
		}
	}
}

func TestSceneReplaceFailedInsertAbortsTransaction(t *testing.T) {
	boom := errors.New("insert failed")
	exec := &stubExecutor{execErr: boom, failExec: 3}
	scenes := []domain.Scene{{Sequence: 1, Title: "a"}, {Sequence: 2, Title: "b"}}

	err := NewSceneRepository(exec).ReplaceForProject(context.Background(), "p-1", "owner-1", scenes)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "insert scene 2") {
		t.Fatalf("err = %v, want the failing sequence", err)
	}
	if exec.txs != 1 || exec.txExecs != 3 {
		t.Fatalf("txs = %d tx execs = %d, want the failure inside the transaction", exec.txs, exec.txExecs)
	}
}
