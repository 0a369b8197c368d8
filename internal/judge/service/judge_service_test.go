package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codearena/internal/common/cache"
	"codearena/internal/common/mq"
	"codearena/internal/grade"
	"codearena/internal/judge/model"
	"codearena/internal/judge/repository"
	"codearena/internal/lang"
	"codearena/internal/sandbox/process"
	"codearena/internal/sandbox/result"
	"codearena/internal/sandbox/vm"
)

func TestHandleMessageDropsMalformedBody(t *testing.T) {
	svc := NewJudgeService(Config{}, nil, nil, nil, nil, nil)

	msg := mq.NewMessage([]byte("{not json"))
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("malformed message returned %v, want nil so it is not requeued", err)
	}
}

func TestHandleMessageDropsMissingSubmissionID(t *testing.T) {
	svc := NewJudgeService(Config{}, nil, nil, nil, nil, nil)

	msg := mq.NewMessage([]byte(`{"problem_id": 1, "code": "print(1)"}`))
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("message without submission id returned %v, want nil", err)
	}
}

// execLog records the statements a stub SQL connection executed, so a
// test can assert on the writes the judge issued without a database.
type execLog struct {
	mu    sync.Mutex
	execs []loggedExec
}

type loggedExec struct {
	query string
	args  []driver.Value
}

func (l *execLog) add(query string, args []driver.Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.execs = append(l.execs, loggedExec{query: query, args: args})
}

func (l *execLog) snapshot() []loggedExec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]loggedExec(nil), l.execs...)
}

type stubConnector struct{ log *execLog }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn{log: c.log}, nil
}
func (c stubConnector) Driver() driver.Driver { return stubSQLDriver{} }

type stubSQLDriver struct{}

func (stubSQLDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open by DSN not supported")
}

type stubConn struct{ log *execLog }

func (c stubConn) Prepare(query string) (driver.Stmt, error) {
	return stubStmt{log: c.log, query: query}, nil
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type stubStmt struct {
	log   *execLog
	query string
}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return -1 }

func (s stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.log.add(s.query, args)
	return driver.RowsAffected(1), nil
}

func (s stubStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("queries not supported")
}

type capturingStatusPublisher struct {
	mu      sync.Mutex
	records []model.StatusRecord
}

func (p *capturingStatusPublisher) PublishFinalStatus(_ context.Context, record model.StatusRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func (p *capturingStatusPublisher) published() []model.StatusRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StatusRecord(nil), p.records...)
}

// judgeFixture wires a JudgeService against a shared in-memory cache,
// a statement-logging SQL stub and the embedded VM backend.
type judgeFixture struct {
	svc       *JudgeService
	cache     cache.Cache
	status    *repository.StatusRepository
	publisher *capturingStatusPublisher
	sql       *execLog
}

func newJudgeFixture(t *testing.T) *judgeFixture {
	t.Helper()

	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	log := &execLog{}
	db := sql.OpenDB(stubConnector{log: log})
	t.Cleanup(func() { _ = db.Close() })

	proc := process.NewRunner(t.TempDir(), process.WithSpecs(nil))
	vmRunner := vm.NewRunner(vm.Config{ArtifactCacheDir: t.TempDir()})
	t.Cleanup(func() { _ = vmRunner.Close() })

	status := repository.NewStatusRepository(c)
	publisher := &capturingStatusPublisher{}
	svc := NewJudgeService(Config{},
		repository.NewProblemRepository(db, c, nil, ""),
		repository.NewSubmissionRepository(db),
		status,
		publisher,
		NewSelector(proc, nil, vmRunner),
	)
	return &judgeFixture{svc: svc, cache: c, status: status, publisher: publisher, sql: log}
}

func (f *judgeFixture) seedProblem(t *testing.T, problem model.Problem) {
	t.Helper()
	data, err := json.Marshal(&problem)
	if err != nil {
		t.Fatalf("marshal problem: %v", err)
	}
	key := fmt.Sprintf("problem:meta:%d", problem.ID)
	if err := f.cache.Set(context.Background(), key, string(data), time.Minute); err != nil {
		t.Fatalf("seed problem: %v", err)
	}
}

func submissionBody(t *testing.T, msg model.SubmissionMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal submission: %v", err)
	}
	return body
}

func TestHandleMessageJudgesSubmission(t *testing.T) {
	f := newJudgeFixture(t)
	ctx := context.Background()

	f.seedProblem(t, model.Problem{
		ID:            7,
		Title:         "Echo",
		Points:        100,
		TimeLimitMs:   2000,
		MemoryLimitMB: 128,
		TestCases: []grade.TestCase{
			{Input: "", ExpectedOutput: "hello"},
		},
	})
	f.status.SetStatus(ctx, "sub-1", model.StatusPending)

	msg := model.SubmissionMessage{
		SubmissionID: "sub-1",
		ProblemID:    7,
		Code:         `console.log("hello");`,
		Language:     lang.JavaScript,
	}
	if err := f.svc.HandleMessage(ctx, mq.NewMessage(submissionBody(t, msg))); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	record, err := f.status.Get(ctx, "sub-1")
	if err != nil {
		t.Fatalf("status Get: %v", err)
	}
	if record == nil || record.Status != model.StatusFinished {
		t.Fatalf("status record = %+v, want FINISHED", record)
	}
	if record.Verdict == nil || record.Verdict.Status != result.StatusAccepted {
		t.Fatalf("verdict = %+v, want ACCEPTED", record.Verdict)
	}
	if record.Verdict.Score != 100 {
		t.Errorf("score = %d, want 100", record.Verdict.Score)
	}

	execs := f.sql.snapshot()
	if len(execs) != 2 {
		t.Fatalf("sql execs = %d, want running update then verdict save", len(execs))
	}
	if execs[0].args[0] != string(model.StatusRunning) {
		t.Errorf("first update set status %v, want RUNNING", execs[0].args[0])
	}
	if !strings.Contains(execs[1].query, "verdict") {
		t.Errorf("second statement %q does not save the verdict", execs[1].query)
	}

	published := f.publisher.published()
	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	if published[0].Status != model.StatusFinished || published[0].Verdict == nil {
		t.Errorf("published record = %+v, want FINISHED with verdict", published[0])
	}
}

func TestHandleMessageDropsDuplicateClaim(t *testing.T) {
	f := newJudgeFixture(t)
	ctx := context.Background()

	token, err := f.status.TryLockJudging(ctx, "sub-3", time.Minute)
	if err != nil || token == "" {
		t.Fatalf("TryLockJudging = %q, %v", token, err)
	}

	msg := model.SubmissionMessage{
		SubmissionID: "sub-3",
		ProblemID:    7,
		Code:         `console.log("x");`,
		Language:     lang.JavaScript,
	}
	if err := f.svc.HandleMessage(ctx, mq.NewMessage(submissionBody(t, msg))); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if execs := f.sql.snapshot(); len(execs) != 0 {
		t.Fatalf("duplicate still wrote %d sql statements", len(execs))
	}
	if published := f.publisher.published(); len(published) != 0 {
		t.Fatalf("duplicate still published %d events", len(published))
	}
}

func TestHandleMessageFailsUnknownProblem(t *testing.T) {
	f := newJudgeFixture(t)
	ctx := context.Background()

	// Cached absence: the repository treats this as a confirmed miss.
	if err := f.cache.Set(ctx, "problem:meta:41", cache.NullValue, time.Minute); err != nil {
		t.Fatalf("seed miss: %v", err)
	}

	msg := model.SubmissionMessage{
		SubmissionID: "sub-2",
		ProblemID:    41,
		Code:         `console.log("x");`,
		Language:     lang.JavaScript,
	}
	if err := f.svc.HandleMessage(ctx, mq.NewMessage(submissionBody(t, msg))); err != nil {
		t.Fatalf("HandleMessage = %v, want nil so a bad submission is not requeued", err)
	}

	record, err := f.status.Get(ctx, "sub-2")
	if err != nil {
		t.Fatalf("status Get: %v", err)
	}
	if record == nil || record.Status != model.StatusFailed {
		t.Fatalf("status record = %+v, want FAILED", record)
	}
	if record.ErrorMessage == "" {
		t.Error("failure record has no error message")
	}

	published := f.publisher.published()
	if len(published) != 1 || published[0].Status != model.StatusFailed {
		t.Fatalf("published = %+v, want one FAILED event", published)
	}
}
