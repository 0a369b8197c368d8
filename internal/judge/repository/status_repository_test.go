package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codearena/internal/common/cache"
	"codearena/internal/judge/model"
	"codearena/internal/lang"
	"codearena/internal/sandbox/result"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestStatusSetGetRoundTrip(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))
	ctx := context.Background()

	verdict := result.SubmissionVerdict{Status: result.StatusAccepted, Score: 100}
	record := model.StatusRecord{
		SubmissionID: "sub-1",
		ProblemID:    42,
		Status:       model.StatusFinished,
		Language:     lang.Python,
		Verdict:      &verdict,
	}
	if err := repo.Set(ctx, record); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := repo.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored record")
	}
	if got.ProblemID != 42 || got.Status != model.StatusFinished || got.Language != lang.Python {
		t.Fatalf("Get = %+v", got)
	}
	if got.Verdict == nil || got.Verdict.Status != result.StatusAccepted || got.Verdict.Score != 100 {
		t.Fatalf("verdict = %+v", got.Verdict)
	}
	if got.UpdatedAt == 0 {
		t.Fatal("UpdatedAt not stamped")
	}
}

func TestStatusGetMissReturnsNil(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))

	got, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get = %+v, want nil", got)
	}
}

func TestSetStatusUpdatesLifecycleOnly(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))
	ctx := context.Background()

	record := model.StatusRecord{
		SubmissionID: "sub-2",
		ProblemID:    7,
		Status:       model.StatusPending,
		Language:     lang.CPP,
	}
	if err := repo.Set(ctx, record); err != nil {
		t.Fatalf("Set: %v", err)
	}

	repo.SetStatus(ctx, "sub-2", model.StatusRunning)

	got, err := repo.Get(ctx, "sub-2")
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got.Status != model.StatusRunning {
		t.Fatalf("Status = %s, want %s", got.Status, model.StatusRunning)
	}
	if got.ProblemID != 7 || got.Language != lang.CPP {
		t.Fatalf("fields lost on lifecycle update: %+v", got)
	}
}

func TestJudgingClaimExcludesSecondWorker(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))
	ctx := context.Background()

	token, err := repo.TryLockJudging(ctx, "sub-9", time.Minute)
	if err != nil {
		t.Fatalf("TryLockJudging: %v", err)
	}
	if token == "" {
		t.Fatal("first claim returned no token")
	}

	second, err := repo.TryLockJudging(ctx, "sub-9", time.Minute)
	if err != nil {
		t.Fatalf("second TryLockJudging: %v", err)
	}
	if second != "" {
		t.Fatalf("second claim = %q, want empty while held", second)
	}

	repo.UnlockJudging(ctx, "sub-9", token)

	third, err := repo.TryLockJudging(ctx, "sub-9", time.Minute)
	if err != nil {
		t.Fatalf("TryLockJudging after release: %v", err)
	}
	if third == "" {
		t.Fatal("claim not reacquirable after release")
	}
}

func TestIncrAttemptsCounts(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		if got := repo.IncrAttempts(ctx, "sub-10"); got != want {
			t.Fatalf("IncrAttempts = %d, want %d", got, want)
		}
	}
	if got := repo.IncrAttempts(ctx, "sub-11"); got != 1 {
		t.Fatalf("IncrAttempts for fresh submission = %d, want 1", got)
	}
}

func TestSetStatusCreatesMinimalRecord(t *testing.T) {
	repo := NewStatusRepository(newTestCache(t))
	ctx := context.Background()

	repo.SetStatus(ctx, "sub-3", model.StatusRunning)

	got, err := repo.Get(ctx, "sub-3")
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got.SubmissionID != "sub-3" || got.Status != model.StatusRunning {
		t.Fatalf("Get = %+v", got)
	}
}
