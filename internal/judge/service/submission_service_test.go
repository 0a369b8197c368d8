package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codearena/internal/common/cache"
	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	"codearena/internal/judge/repository"
	"codearena/internal/sandbox/process"
	"codearena/internal/sandbox/result"
	"codearena/internal/sandbox/vm"
	appErr "codearena/pkg/errors"
)

func newStatusRepo(t *testing.T) *repository.StatusRepository {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return repository.NewStatusRepository(c)
}

// newPlaygroundService builds a service whose selector always lands on
// the embedded VM backend.
func newPlaygroundService(t *testing.T) *SubmissionService {
	t.Helper()
	proc := process.NewRunner(t.TempDir(), process.WithSpecs(nil))
	vmRunner := vm.NewRunner(vm.Config{ArtifactCacheDir: t.TempDir()})
	t.Cleanup(func() { _ = vmRunner.Close() })
	selector := NewSelector(proc, nil, vmRunner)
	return NewSubmissionService(0, "judge.submissions", &noopProducer{}, nil, newStatusRepo(t), selector)
}

type noopProducer struct{}

func (*noopProducer) Publish(context.Context, string, *mq.Message) error { return nil }

func TestExecutePlaygroundJavaScript(t *testing.T) {
	svc := newPlaygroundService(t)

	res, err := svc.Execute(context.Background(), `console.log("hello");`, "js", "", 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != result.VerdictSuccess {
		t.Fatalf("status = %s, error %q", res.Status, res.Error)
	}
	if res.Output != "hello" {
		t.Fatalf("output = %q, want %q", res.Output, "hello")
	}
}

func TestExecuteRejectsUnknownLanguage(t *testing.T) {
	svc := newPlaygroundService(t)

	_, err := svc.Execute(context.Background(), "print(1)", "cobol", "", 0)
	if !appErr.Is(err, appErr.UnknownLanguageAlias) {
		t.Fatalf("err = %v, want UnknownLanguageAlias", err)
	}
}

func TestExecuteRejectsOversizedCode(t *testing.T) {
	svc := newPlaygroundService(t)

	big := make([]byte, 257<<10)
	for i := range big {
		big[i] = 'a'
	}
	_, err := svc.Execute(context.Background(), string(big), "python", "", 0)
	if !appErr.Is(err, appErr.CodeTooLarge) {
		t.Fatalf("err = %v, want CodeTooLarge", err)
	}
}

func TestSubmitRejectsEmptyCode(t *testing.T) {
	svc := newPlaygroundService(t)

	_, err := svc.Submit(context.Background(), 1, 1, "", "python")
	if !appErr.Is(err, appErr.EmptySource) {
		t.Fatalf("err = %v, want EmptySource", err)
	}
}

func TestSubmitRejectsMissingProblem(t *testing.T) {
	svc := newPlaygroundService(t)

	_, err := svc.Submit(context.Background(), 0, 1, "print(1)", "python")
	if err == nil {
		t.Fatal("Submit without problem id succeeded")
	}
}

func TestStatusFromCache(t *testing.T) {
	statusRepo := newStatusRepo(t)
	svc := NewSubmissionService(0, "judge.submissions", &noopProducer{}, nil, statusRepo, nil)
	ctx := context.Background()

	record := model.StatusRecord{SubmissionID: "sub-cache", Status: model.StatusRunning}
	if err := statusRepo.Set(ctx, record); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	got, err := svc.Status(ctx, "sub-cache")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got == nil || got.Status != model.StatusRunning {
		t.Fatalf("Status = %+v", got)
	}
}

func TestStatusRequiresID(t *testing.T) {
	svc := NewSubmissionService(0, "judge.submissions", &noopProducer{}, nil, newStatusRepo(t), nil)

	if _, err := svc.Status(context.Background(), ""); err == nil {
		t.Fatal("Status with empty id succeeded")
	}
}
