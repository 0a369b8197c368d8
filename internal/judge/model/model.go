// Package model holds the data shapes shared by the judge repositories
// and service.
package model

import (
	"time"

	"codearena/internal/grade"
	"codearena/internal/lang"
	"codearena/internal/sandbox/result"
)

// JudgeStatus is the lifecycle of a submission inside the judge.
type JudgeStatus string

const (
	StatusPending  JudgeStatus = "PENDING"
	StatusRunning  JudgeStatus = "RUNNING"
	StatusFinished JudgeStatus = "FINISHED"
	StatusFailed   JudgeStatus = "FAILED"
)

// SubmissionMessage is the queue payload that triggers a judge run.
type SubmissionMessage struct {
	SubmissionID string        `json:"submission_id"`
	ProblemID    int64         `json:"problem_id"`
	UserID       int64         `json:"user_id"`
	Code         string        `json:"code"`
	Language     lang.Language `json:"language"`
	SubmittedAt  int64         `json:"submitted_at"`
}

// Problem is the judgeable view of a problem: limits, points and where
// its test data lives.
type Problem struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Points        int              `json:"points"`
	TimeLimitMs   int64            `json:"time_limit_ms"`
	MemoryLimitMB int64            `json:"memory_limit_mb"`
	TestDataKey   string           `json:"test_data_key"`
	TestCases     []grade.TestCase `json:"test_cases,omitempty"`
}

// StatusRecord is the submission state visible to API clients.
type StatusRecord struct {
	SubmissionID string                    `json:"submission_id"`
	ProblemID    int64                     `json:"problem_id"`
	Status       JudgeStatus               `json:"status"`
	Language     lang.Language             `json:"language"`
	Verdict      *result.SubmissionVerdict `json:"verdict,omitempty"`
	ErrorMessage string                    `json:"error_message,omitempty"`
	UpdatedAt    int64                     `json:"updated_at"`
}

// StatusEventType tags status events on the wire.
type StatusEventType string

const (
	// StatusEventFinal marks the terminal event of a submission.
	StatusEventFinal StatusEventType = "final"
)

// StatusEvent carries a status update for async consumers.
type StatusEvent struct {
	Type      StatusEventType `json:"type"`
	Record    StatusRecord    `json:"record"`
	CreatedAt int64           `json:"created_at"`
}

// NewStatusRecord seeds a pending record for a fresh submission.
func NewStatusRecord(msg SubmissionMessage) StatusRecord {
	return StatusRecord{
		SubmissionID: msg.SubmissionID,
		ProblemID:    msg.ProblemID,
		Status:       StatusPending,
		Language:     msg.Language,
		UpdatedAt:    time.Now().Unix(),
	}
}
