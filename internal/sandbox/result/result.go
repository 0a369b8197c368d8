// Package result defines execution results and submission verdicts.
package result

// Verdict represents the terminal outcome of one execution.
type Verdict string

const (
	VerdictSuccess     Verdict = "SUCCESS"
	VerdictError       Verdict = "ERROR"
	VerdictTimeout     Verdict = "TIMEOUT"
	VerdictMemoryLimit Verdict = "MEMORY_LIMIT_EXCEEDED"
)

// NoOutput is the placeholder for an execution that produced no stdout.
// ExecutionResult.Output is never the empty string.
const NoOutput = "(no output)"

// ExecutionResult captures everything one execution produced.
type ExecutionResult struct {
	Status          Verdict `json:"status"`
	Output          string  `json:"output"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs int64   `json:"executionTimeMs"`
	MemoryUsageKB   int64   `json:"memoryUsageKb"`
	TimeComplexity  string  `json:"timeComplexity,omitempty"`
	SpaceComplexity string  `json:"spaceComplexity,omitempty"`
	UsingFallback   bool    `json:"usingFallback,omitempty"`
}

// Normalize enforces the output placeholder invariant.
func (r *ExecutionResult) Normalize() {
	if r.Output == "" {
		r.Output = NoOutput
	}
}

// TestResult is the per-test-case outcome of one grading run. It is
// derived and ephemeral; only the aggregate verdict is persisted.
type TestResult struct {
	Index          int    `json:"index"`
	Passed         bool   `json:"passed"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Error          string `json:"error,omitempty"`
}

// SubmissionStatus is the aggregate outcome of a graded submission.
type SubmissionStatus string

const (
	StatusAccepted          SubmissionStatus = "ACCEPTED"
	StatusWrongAnswer       SubmissionStatus = "WRONG_ANSWER"
	StatusTimeLimitExceeded SubmissionStatus = "TIME_LIMIT_EXCEEDED"
)

// SubmissionVerdict aggregates all TestResults of one submission.
// Invariant: Status == StatusAccepted iff every test passed, and Score is
// either 0 or the problem's full points, never partial.
type SubmissionVerdict struct {
	Status          SubmissionStatus `json:"status"`
	Score           int              `json:"score"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	MemoryUsageKB   int64            `json:"memoryUsageKb"`
	TimeComplexity  string           `json:"timeComplexity,omitempty"`
	SpaceComplexity string           `json:"spaceComplexity,omitempty"`
}
