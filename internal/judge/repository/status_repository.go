package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/common/cache"
	"codearena/internal/judge/model"
	"codearena/internal/lang"
	"codearena/internal/sandbox/result"
)

const statusTTL = 24 * time.Hour

// Hash fields of a status record.
const (
	fieldSubmissionID = "submission_id"
	fieldProblemID    = "problem_id"
	fieldStatus       = "status"
	fieldLanguage     = "language"
	fieldVerdict      = "verdict"
	fieldErrorMessage = "error_message"
	fieldUpdatedAt    = "updated_at"
)

// StatusRepository keeps live submission status in the cache for fast
// polling, one hash per submission so lifecycle updates touch only the
// fields they change. MySQL stays the system of record; a cache write
// failure on a non-terminal update is logged and tolerated.
type StatusRepository struct {
	cache cache.Cache
}

// NewStatusRepository wires the status read/write path.
func NewStatusRepository(c cache.Cache) *StatusRepository {
	return &StatusRepository{cache: c}
}

func statusKey(submissionID string) string {
	return fmt.Sprintf("submission:status:%s", submissionID)
}

func judgingLockKey(submissionID string) string {
	return fmt.Sprintf("submission:judging:%s", submissionID)
}

func attemptsKey(submissionID string) string {
	return fmt.Sprintf("submission:attempts:%s", submissionID)
}

// Set stores the full status record.
func (r *StatusRepository) Set(ctx context.Context, record model.StatusRecord) error {
	record.UpdatedAt = time.Now().Unix()
	fields := map[string]interface{}{
		fieldSubmissionID: record.SubmissionID,
		fieldProblemID:    record.ProblemID,
		fieldStatus:       string(record.Status),
		fieldLanguage:     string(record.Language),
		fieldErrorMessage: record.ErrorMessage,
		fieldUpdatedAt:    record.UpdatedAt,
	}
	if record.Verdict != nil {
		payload, err := json.Marshal(record.Verdict)
		if err != nil {
			return appErr.Wrapf(err, appErr.CacheError, "marshal verdict for %s failed", record.SubmissionID)
		}
		fields[fieldVerdict] = string(payload)
	}

	key := statusKey(record.SubmissionID)
	if err := r.cache.HMSet(ctx, key, fields); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "store status for %s failed", record.SubmissionID)
	}
	if err := r.cache.Expire(ctx, key, statusTTL); err != nil {
		logger.Warnf(ctx, "status ttl for %s not set: %v", record.SubmissionID, err)
	}
	return nil
}

// SetStatus updates only the lifecycle fields, leaving whatever else
// the hash already holds in place.
func (r *StatusRepository) SetStatus(ctx context.Context, submissionID string, status model.JudgeStatus) {
	key := statusKey(submissionID)
	fields := map[string]interface{}{
		fieldSubmissionID: submissionID,
		fieldStatus:       string(status),
		fieldUpdatedAt:    time.Now().Unix(),
	}
	if err := r.cache.HMSet(ctx, key, fields); err != nil {
		logger.Warnf(ctx, "status update to %s for %s not cached: %v", status, submissionID, err)
		return
	}
	if err := r.cache.Expire(ctx, key, statusTTL); err != nil {
		logger.Warnf(ctx, "status ttl for %s not set: %v", submissionID, err)
	}
}

// Get returns the cached record, nil when nothing is cached.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (*model.StatusRecord, error) {
	fields, err := r.cache.HGetAll(ctx, statusKey(submissionID))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "load status for %s failed", submissionID)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	record := model.StatusRecord{
		SubmissionID: fields[fieldSubmissionID],
		Status:       model.JudgeStatus(fields[fieldStatus]),
		Language:     lang.Language(fields[fieldLanguage]),
		ErrorMessage: fields[fieldErrorMessage],
	}
	if raw := fields[fieldProblemID]; raw != "" {
		record.ProblemID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		record.UpdatedAt, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := fields[fieldVerdict]; raw != "" {
		var verdict result.SubmissionVerdict
		if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
			return nil, appErr.Wrapf(err, appErr.CacheError, "decode verdict for %s failed", submissionID)
		}
		record.Verdict = &verdict
	}
	return &record, nil
}

// TryLockJudging claims a submission for one judge worker. It returns
// the release token, or empty string when another worker already holds
// the claim.
func (r *StatusRepository) TryLockJudging(ctx context.Context, submissionID string, ttl time.Duration) (string, error) {
	return r.cache.TryLock(ctx, judgingLockKey(submissionID), ttl)
}

// UnlockJudging releases the judging claim. The lock's TTL covers a
// worker that dies before getting here.
func (r *StatusRepository) UnlockJudging(ctx context.Context, submissionID, token string) {
	if err := r.cache.Unlock(ctx, judgingLockKey(submissionID), token); err != nil {
		logger.Warnf(ctx, "judging claim for %s not released: %v", submissionID, err)
	}
}

// IncrAttempts counts how many times a submission entered judging, so
// requeue loops show up when diagnosing a stuck submission. Returns 0
// when the cache is unavailable.
func (r *StatusRepository) IncrAttempts(ctx context.Context, submissionID string) int64 {
	key := attemptsKey(submissionID)
	n, err := r.cache.Incr(ctx, key)
	if err != nil {
		logger.Warnf(ctx, "attempt counter for %s not updated: %v", submissionID, err)
		return 0
	}
	if err := r.cache.Expire(ctx, key, statusTTL); err != nil {
		logger.Warnf(ctx, "attempt counter ttl for %s not set: %v", submissionID, err)
	}
	return n
}
