// Package grade runs a submission against a problem's test cases and
// aggregates the per-case outcomes into a verdict.
package grade

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/complexity"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/result"
)

// TestCase is one input/expected pair. Hidden cases are graded but
// never shown in try-out runs.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	Hidden         bool   `json:"hidden,omitempty"`
}

// Pipeline grades submissions on a runner.
type Pipeline struct {
	runner sandbox.Runner
}

// NewPipeline builds a grading pipeline on top of any runner.
func NewPipeline(runner sandbox.Runner) *Pipeline {
	return &Pipeline{runner: runner}
}

// Grade executes every test case sequentially and folds the outcomes
// into a single verdict. Scoring is all or nothing: full points when
// every case passes, zero otherwise. A runner infrastructure fault on
// one case fails that case and grading continues.
func (p *Pipeline) Grade(ctx context.Context, req sandbox.Request, cases []TestCase, points int) (result.SubmissionVerdict, []result.TestResult, error) {
	if len(cases) == 0 {
		return result.SubmissionVerdict{}, nil, appErr.New(appErr.TestDataMissing).WithMessage("problem has no test cases")
	}

	results := make([]result.TestResult, 0, len(cases))
	var maxTimeMs, maxMemKB int64
	allPassed := true
	sawTimeout := false

	for i, tc := range cases {
		caseReq := req
		caseReq.Stdin = tc.Input

		res, err := p.runner.Execute(ctx, caseReq)
		if err != nil {
			logger.Errorf(ctx, "runner fault on test case %d: %v", i+1, err)
			allPassed = false
			results = append(results, result.TestResult{
				Index:          i + 1,
				Passed:         false,
				ExpectedOutput: tc.ExpectedOutput,
				ActualOutput:   result.NoOutput,
				Error:          "Execution failed: sandbox unavailable",
			})
			continue
		}

		if res.ExecutionTimeMs > maxTimeMs {
			maxTimeMs = res.ExecutionTimeMs
		}
		if res.MemoryUsageKB > maxMemKB {
			maxMemKB = res.MemoryUsageKB
		}

		tr := result.TestResult{
			Index:          i + 1,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   res.Output,
		}

		switch {
		case res.Status == result.VerdictTimeout:
			tr.Error = "Time limit exceeded"
			if !sawTimeout && allPassed {
				sawTimeout = true
			}
		case res.Status != result.VerdictSuccess:
			tr.Error = res.Error
		case outputsMatch(res.Output, tc.ExpectedOutput):
			tr.Passed = true
		default:
			tr.Error = diff(tc.ExpectedOutput, res.Output)
		}

		if !tr.Passed {
			allPassed = false
		}
		results = append(results, tr)
	}

	verdict := result.SubmissionVerdict{
		ExecutionTimeMs: maxTimeMs,
		MemoryUsageKB:   maxMemKB,
	}

	est := complexity.Analyze(req.Code, req.Language)
	verdict.TimeComplexity = est.Time
	verdict.SpaceComplexity = est.Space

	switch {
	case allPassed:
		verdict.Status = result.StatusAccepted
		verdict.Score = points
	case sawTimeout:
		verdict.Status = result.StatusTimeLimitExceeded
	default:
		verdict.Status = result.StatusWrongAnswer
	}
	return verdict, results, nil
}

// Test runs the submission against the visible cases only, the
// try-before-submit mode. No verdict and no score, just the per-case
// results a user may see.
func (p *Pipeline) Test(ctx context.Context, req sandbox.Request, cases []TestCase) ([]result.TestResult, error) {
	visible := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		if !tc.Hidden {
			visible = append(visible, tc)
		}
	}
	if len(visible) == 0 {
		return nil, nil
	}
	_, results, err := p.Grade(ctx, req, visible, 0)
	return results, err
}

// outputsMatch compares outputs after trimming surrounding whitespace.
// Interior whitespace stays significant.
func outputsMatch(actual, expected string) bool {
	a := strings.TrimSpace(actual)
	if a == result.NoOutput {
		a = ""
	}
	return a == strings.TrimSpace(expected)
}

// diff renders a unified diff of expected versus actual output for the
// failed case report.
func diff(expected, actual string) string {
	if strings.TrimSpace(actual) == result.NoOutput || actual == result.NoOutput {
		actual = ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimSpace(expected)),
		B:        difflib.SplitLines(strings.TrimSpace(actual)),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		return fmt.Sprintf("output mismatch: expected %q, got %q", expected, actual)
	}
	return "Wrong answer:\n" + text
}
