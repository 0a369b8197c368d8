// Package sandbox defines the runner contract shared by the process,
// remote and VM execution backends.
package sandbox

import (
	"context"

	"codearena/internal/lang"
	"codearena/internal/sandbox/result"
	"codearena/internal/sanitize"
	appErr "codearena/pkg/errors"
)

// Request contains everything needed to execute one piece of code.
type Request struct {
	Code          string
	Language      lang.Language
	Stdin         string
	TimeLimitMs   int64
	MemoryLimitMB int64
}

// Runner executes untrusted code under the request's constraints. User-code
// failures (compile errors, crashes, timeouts) are reported inside the
// ExecutionResult; the error return is reserved for infrastructure faults.
type Runner interface {
	Execute(ctx context.Context, req Request) (result.ExecutionResult, error)
}

// DefaultTimeLimitMs bounds executions whose request carries no limit.
const DefaultTimeLimitMs = 5000

// Prepare runs the shared sanitize -> validate -> wrap pipeline. Every
// runner calls it first; a validation error means no engine or process is
// ever started for this request.
func Prepare(req Request) (string, error) {
	if !lang.IsSupported(req.Language) {
		return "", appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", req.Language)
	}
	code := sanitize.Sanitize(req.Code, req.Language)
	if code == "" {
		return "", appErr.New(appErr.EmptySource)
	}
	code = lang.Wrap(code, req.Language)
	if err := sanitize.Validate(code, req.Language); err != nil {
		return "", err
	}
	return code, nil
}

// EffectiveTimeLimitMs returns the request's time limit with the default applied.
func (r Request) EffectiveTimeLimitMs() int64 {
	if r.TimeLimitMs > 0 {
		return r.TimeLimitMs
	}
	return DefaultTimeLimitMs
}
