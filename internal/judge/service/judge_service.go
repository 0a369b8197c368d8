// Package service contains the judge orchestration: it consumes
// submission messages, grades them and persists the outcome.
package service

import (
	"context"
	"encoding/json"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/common/mq"
	"codearena/internal/grade"
	"codearena/internal/judge/model"
	"codearena/internal/judge/repository"
	"codearena/internal/sandbox"
)

// Config bounds the judge service.
type Config struct {
	WorkerPoolSize int           `yaml:"workerPoolSize"`
	MaxCodeBytes   int           `yaml:"maxCodeBytes"`
	JudgeTimeout   time.Duration `yaml:"judgeTimeout"`
}

func (c *Config) setDefaults() {
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 4
	}
	if c.MaxCodeBytes <= 0 {
		c.MaxCodeBytes = 256 << 10
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = 2 * time.Minute
	}
}

// JudgeService grades submissions end to end.
type JudgeService struct {
	cfg         Config
	problems    *repository.ProblemRepository
	submissions *repository.SubmissionRepository
	status      *repository.StatusRepository
	publisher   repository.StatusEventPublisher
	selector    *Selector

	// sem bounds concurrent judge runs across all consumer goroutines.
	sem chan struct{}
}

// NewJudgeService wires the judge pipeline.
func NewJudgeService(
	cfg Config,
	problems *repository.ProblemRepository,
	submissions *repository.SubmissionRepository,
	status *repository.StatusRepository,
	publisher repository.StatusEventPublisher,
	selector *Selector,
) *JudgeService {
	cfg.setDefaults()
	return &JudgeService{
		cfg:         cfg,
		problems:    problems,
		submissions: submissions,
		status:      status,
		publisher:   publisher,
		selector:    selector,
		sem:         make(chan struct{}, cfg.WorkerPoolSize),
	}
}

// HandleMessage is the queue entry point. A returned error requeues
// the message, so only transient faults are returned; a submission
// that is simply wrong gets a FAILED record and a nil return.
func (s *JudgeService) HandleMessage(ctx context.Context, message *mq.Message) error {
	var msg model.SubmissionMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		logger.Errorf(ctx, "malformed submission message %s: %v", message.ID, err)
		return nil
	}
	if msg.SubmissionID == "" {
		logger.Error(ctx, "submission message without submission_id, dropping")
		return nil
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return appErr.Wrapf(ctx.Err(), appErr.WorkerPoolFull, "judge pool unavailable for %s", msg.SubmissionID)
	}
	defer func() { <-s.sem }()

	// Redelivered messages race real workers; the claim keeps one
	// submission on one worker. On cache trouble we judge anyway.
	token, err := s.status.TryLockJudging(ctx, msg.SubmissionID, s.cfg.JudgeTimeout)
	switch {
	case err != nil:
		logger.Warnf(ctx, "judging claim for %s unavailable: %v", msg.SubmissionID, err)
	case token == "":
		logger.Infof(ctx, "submission %s already claimed, dropping duplicate", msg.SubmissionID)
		return nil
	default:
		defer s.status.UnlockJudging(ctx, msg.SubmissionID, token)
	}

	judgeCtx, cancel := context.WithTimeout(ctx, s.cfg.JudgeTimeout)
	defer cancel()
	return s.judge(judgeCtx, msg)
}

func (s *JudgeService) judge(ctx context.Context, msg model.SubmissionMessage) error {
	attempt := s.status.IncrAttempts(ctx, msg.SubmissionID)
	logger.Infof(ctx, "judging submission %s for problem %d, attempt %d", msg.SubmissionID, msg.ProblemID, attempt)

	if len(msg.Code) > s.cfg.MaxCodeBytes {
		s.fail(ctx, msg, appErr.Newf(appErr.CodeTooLarge, "submission exceeds %d bytes", s.cfg.MaxCodeBytes))
		return nil
	}

	s.status.SetStatus(ctx, msg.SubmissionID, model.StatusRunning)
	if err := s.submissions.UpdateStatus(ctx, msg.SubmissionID, model.StatusRunning); err != nil {
		logger.Warnf(ctx, "submission %s not marked running: %v", msg.SubmissionID, err)
	}

	problem, err := s.problems.GetProblem(ctx, msg.ProblemID)
	if err != nil {
		if appErr.Is(err, appErr.ProblemNotFound) {
			s.fail(ctx, msg, err)
			return nil
		}
		return err
	}
	cases, err := s.problems.LoadTestCases(ctx, problem)
	if err != nil {
		if appErr.Is(err, appErr.TestDataMissing) {
			s.fail(ctx, msg, err)
			return nil
		}
		return err
	}

	runner, backend := s.selector.Pick(msg.Language)
	logger.Infof(ctx, "submission %s runs on %s backend", msg.SubmissionID, backend)

	req := sandbox.Request{
		Code:          msg.Code,
		Language:      msg.Language,
		TimeLimitMs:   problem.TimeLimitMs,
		MemoryLimitMB: problem.MemoryLimitMB,
	}
	verdict, results, err := grade.NewPipeline(runner).Grade(ctx, req, cases, problem.Points)
	if err != nil {
		return err
	}
	logger.Infof(ctx, "submission %s graded %s on %d cases", msg.SubmissionID, verdict.Status, len(results))

	if err := s.submissions.SaveVerdict(ctx, msg.SubmissionID, verdict); err != nil {
		logger.Errorf(ctx, "verdict for %s not persisted: %v", msg.SubmissionID, err)
		return err
	}

	record := model.StatusRecord{
		SubmissionID: msg.SubmissionID,
		ProblemID:    msg.ProblemID,
		Status:       model.StatusFinished,
		Language:     msg.Language,
		Verdict:      &verdict,
	}
	if err := s.status.Set(ctx, record); err != nil {
		logger.Warnf(ctx, "final status for %s not cached: %v", msg.SubmissionID, err)
	}
	if err := s.publisher.PublishFinalStatus(ctx, record); err != nil {
		logger.Errorf(ctx, "final status event for %s not published: %v", msg.SubmissionID, err)
	}
	return nil
}

// fail records a terminal failure caused by the submission itself.
func (s *JudgeService) fail(ctx context.Context, msg model.SubmissionMessage, cause error) {
	logger.Warnf(ctx, "submission %s failed: %v", msg.SubmissionID, cause)

	if err := s.submissions.UpdateStatus(ctx, msg.SubmissionID, model.StatusFailed); err != nil {
		logger.Warnf(ctx, "submission %s not marked failed: %v", msg.SubmissionID, err)
	}
	record := model.StatusRecord{
		SubmissionID: msg.SubmissionID,
		ProblemID:    msg.ProblemID,
		Status:       model.StatusFailed,
		Language:     msg.Language,
		ErrorMessage: appErr.GetError(cause).Error(),
	}
	if err := s.status.Set(ctx, record); err != nil {
		logger.Warnf(ctx, "failure status for %s not cached: %v", msg.SubmissionID, err)
	}
	if err := s.publisher.PublishFinalStatus(ctx, record); err != nil {
		logger.Errorf(ctx, "failure event for %s not published: %v", msg.SubmissionID, err)
	}
}
