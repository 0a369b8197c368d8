package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	appErr "codearena/pkg/errors"

	"codearena/internal/judge/model"
	"codearena/internal/sandbox/result"
)

// SubmissionRepository persists submissions and their final verdicts
// in MySQL.
type SubmissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository wires the submission write path.
func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a pending submission row.
func (r *SubmissionRepository) Create(ctx context.Context, msg model.SubmissionMessage) error {
	const query = `INSERT INTO submissions
		(submission_id, problem_id, user_id, language, code, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		msg.SubmissionID, msg.ProblemID, msg.UserID, string(msg.Language),
		msg.Code, string(model.StatusPending), time.Now(),
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "insert submission %s failed", msg.SubmissionID)
	}
	return nil
}

// UpdateStatus moves a submission through its lifecycle.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, submissionID string, status model.JudgeStatus) error {
	const query = `UPDATE submissions SET status = ?, updated_at = ? WHERE submission_id = ?`

	res, err := r.db.ExecContext(ctx, query, string(status), time.Now(), submissionID)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "update submission %s failed", submissionID)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", submissionID)
	}
	return nil
}

// SaveVerdict records the final verdict alongside the FINISHED status.
func (r *SubmissionRepository) SaveVerdict(ctx context.Context, submissionID string, verdict result.SubmissionVerdict) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "marshal verdict for %s failed", submissionID)
	}

	const query = `UPDATE submissions
		SET status = ?, verdict = ?, score = ?, updated_at = ?
		WHERE submission_id = ?`

	res, err := r.db.ExecContext(ctx, query,
		string(model.StatusFinished), payload, verdict.Score, time.Now(), submissionID,
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "save verdict for %s failed", submissionID)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", submissionID)
	}
	return nil
}

// Get returns a submission's stored state.
func (r *SubmissionRepository) Get(ctx context.Context, submissionID string) (*model.StatusRecord, error) {
	const query = `SELECT submission_id, problem_id, language, status, verdict, updated_at
		FROM submissions WHERE submission_id = ?`

	var (
		record    model.StatusRecord
		verdict   sql.NullString
		updatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, submissionID).Scan(
		&record.SubmissionID, &record.ProblemID, &record.Language,
		&record.Status, &verdict, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", submissionID)
	}
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query submission %s failed", submissionID)
	}
	if verdict.Valid && verdict.String != "" {
		var v result.SubmissionVerdict
		if err := json.Unmarshal([]byte(verdict.String), &v); err == nil {
			record.Verdict = &v
		}
	}
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time.Unix()
	}
	return &record, nil
}
