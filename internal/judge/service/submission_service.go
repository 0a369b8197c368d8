package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	"codearena/internal/judge/repository"
	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/result"
)

// SubmissionService is the intake side: it accepts submissions over
// HTTP, persists them and hands them to the queue for judging. It also
// serves the playground-style direct execution endpoint.
type SubmissionService struct {
	maxCodeBytes int
	topic        string
	queue        mq.Producer
	submissions  *repository.SubmissionRepository
	status       *repository.StatusRepository
	selector     *Selector
}

// NewSubmissionService wires the intake path.
func NewSubmissionService(
	maxCodeBytes int,
	topic string,
	queue mq.Producer,
	submissions *repository.SubmissionRepository,
	status *repository.StatusRepository,
	selector *Selector,
) *SubmissionService {
	if maxCodeBytes <= 0 {
		maxCodeBytes = 256 << 10
	}
	return &SubmissionService{
		maxCodeBytes: maxCodeBytes,
		topic:        topic,
		queue:        queue,
		submissions:  submissions,
		status:       status,
		selector:     selector,
	}
}

// Submit validates the submission, stores it and enqueues it for
// judging. The returned id is what clients poll.
func (s *SubmissionService) Submit(ctx context.Context, problemID, userID int64, code, languageAlias string) (string, error) {
	language, err := lang.Normalize(languageAlias)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", appErr.New(appErr.EmptySource)
	}
	if len(code) > s.maxCodeBytes {
		return "", appErr.Newf(appErr.CodeTooLarge, "submission exceeds %d bytes", s.maxCodeBytes)
	}
	if problemID <= 0 {
		return "", appErr.ValidationError("problem_id", "required")
	}

	msg := model.SubmissionMessage{
		SubmissionID: uuid.NewString(),
		ProblemID:    problemID,
		UserID:       userID,
		Code:         code,
		Language:     language,
		SubmittedAt:  time.Now().Unix(),
	}

	if err := s.submissions.Create(ctx, msg); err != nil {
		return "", err
	}
	if err := s.status.Set(ctx, model.NewStatusRecord(msg)); err != nil {
		logger.Warnf(ctx, "pending status for %s not cached: %v", msg.SubmissionID, err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.PublishFailed, "marshal submission %s failed", msg.SubmissionID)
	}
	message := mq.NewMessage(payload)
	message.ID = msg.SubmissionID
	if err := s.queue.Publish(ctx, s.topic, message); err != nil {
		return "", appErr.Wrapf(err, appErr.PublishFailed, "enqueue submission %s failed", msg.SubmissionID)
	}
	return msg.SubmissionID, nil
}

// Execute runs code directly without a problem attached, the
// playground path. It is synchronous and does not persist anything.
func (s *SubmissionService) Execute(ctx context.Context, code, languageAlias, stdin string, timeLimitMs int64) (result.ExecutionResult, error) {
	language, err := lang.Normalize(languageAlias)
	if err != nil {
		return result.ExecutionResult{}, err
	}
	if len(code) > s.maxCodeBytes {
		return result.ExecutionResult{}, appErr.Newf(appErr.CodeTooLarge, "code exceeds %d bytes", s.maxCodeBytes)
	}

	runner, backend := s.selector.Pick(language)
	logger.Infof(ctx, "direct execution on %s backend", backend)

	return runner.Execute(ctx, sandbox.Request{
		Code:        code,
		Language:    language,
		Stdin:       stdin,
		TimeLimitMs: timeLimitMs,
	})
}

// Status returns the current state of a submission, preferring the
// cache and falling back to the database.
func (s *SubmissionService) Status(ctx context.Context, submissionID string) (*model.StatusRecord, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	if record, err := s.status.Get(ctx, submissionID); err == nil && record != nil {
		return record, nil
	}
	return s.submissions.Get(ctx, submissionID)
}
