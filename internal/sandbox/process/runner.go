// Package process runs submissions as local OS processes inside a
// throwaway working directory.
package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/profile"
	"codearena/internal/sandbox/result"
)

const (
	inputFileName  = "input.txt"
	maxOutputBytes = 1 << 20 // 1 MiB per stream
)

// Runner executes submissions as child processes, one uuid-named
// working directory per invocation. The directory is removed when the
// run finishes, on every path.
type Runner struct {
	tempRoot string
	specs    map[lang.Language]profile.LanguageSpec
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSpecs replaces the built-in language specs.
func WithSpecs(specs []profile.LanguageSpec) Option {
	return func(r *Runner) {
		r.specs = profile.Index(specs)
	}
}

// NewRunner creates a process runner rooted at tempRoot. An empty
// tempRoot falls back to the system temp directory.
func NewRunner(tempRoot string, opts ...Option) *Runner {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	r := &Runner{
		tempRoot: tempRoot,
		specs:    profile.Index(profile.Defaults()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the toolchain needed for the language is
// installed on this host.
func (r *Runner) Available(language lang.Language) bool {
	spec, ok := r.specs[language]
	if !ok {
		return false
	}
	for _, tpl := range []string{spec.CompileCmdTpl, spec.RunCmdTpl} {
		if tpl == "" {
			continue
		}
		argv, err := shlex.Split(tpl)
		if err != nil || len(argv) == 0 {
			return false
		}
		if strings.Contains(argv[0], "{") {
			continue
		}
		if _, err := exec.LookPath(argv[0]); err != nil {
			return false
		}
	}
	return true
}

// Execute prepares the submission, runs it and normalizes the outcome.
// Infrastructure faults come back as errors; everything the submitted
// program did wrong is reported inside the ExecutionResult.
func (r *Runner) Execute(ctx context.Context, req sandbox.Request) (result.ExecutionResult, error) {
	start := time.Now()

	code, err := sandbox.Prepare(req)
	if err != nil {
		res := result.ExecutionResult{
			Status: result.VerdictError,
			Error:  appErr.GetError(err).Error(),
		}
		res.Normalize()
		res.ExecutionTimeMs = time.Since(start).Milliseconds()
		return res, nil
	}

	spec, ok := r.specs[req.Language]
	if !ok {
		return result.ExecutionResult{}, appErr.Newf(appErr.LanguageNotSupported, "no process profile for language %s", req.Language)
	}

	dir := filepath.Join(r.tempRoot, "run-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SandboxError, "failed to create working directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warnf(ctx, "failed to remove working directory %s: %v", dir, rmErr)
		}
	}()

	srcPath := filepath.Join(dir, spec.SourceFile)
	if err := os.WriteFile(srcPath, []byte(code), 0o644); err != nil {
		return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SandboxError, "failed to write source file")
	}
	inputPath := filepath.Join(dir, inputFileName)
	if err := os.WriteFile(inputPath, []byte(req.Stdin), 0o644); err != nil {
		return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SandboxError, "failed to write input file")
	}

	binPath := filepath.Join(dir, spec.BinaryFile)

	if spec.CompileEnabled {
		res, compiled, err := r.compile(ctx, spec, dir, srcPath, binPath)
		if err != nil {
			return result.ExecutionResult{}, err
		}
		if !compiled {
			res.ExecutionTimeMs = time.Since(start).Milliseconds()
			res.Normalize()
			return res, nil
		}
	}

	res, err := r.run(ctx, req, spec, dir, srcPath, binPath, inputPath)
	if err != nil {
		return result.ExecutionResult{}, err
	}
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	res.Normalize()
	return res, nil
}

func (r *Runner) compile(ctx context.Context, spec profile.LanguageSpec, dir, srcPath, binPath string) (result.ExecutionResult, bool, error) {
	argv, err := expand(spec.CompileCmdTpl, dir, srcPath, binPath)
	if err != nil {
		return result.ExecutionResult{}, false, err
	}

	compileCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(compileCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = newCappedWriter(&stderr, maxOutputBytes)

	if err := cmd.Run(); err != nil {
		if compileCtx.Err() == context.DeadlineExceeded {
			return result.ExecutionResult{
				Status: result.VerdictTimeout,
				Error:  "Time limit exceeded",
			}, false, nil
		}
		out := strings.TrimSpace(stderr.String())
		logger.Debugf(ctx, "compilation failed for %s: %s", spec.ID, out)
		return result.ExecutionResult{
			Status: result.VerdictError,
			Error:  friendlyError(spec.ID, out, 1),
		}, false, nil
	}
	return result.ExecutionResult{}, true, nil
}

func (r *Runner) run(ctx context.Context, req sandbox.Request, spec profile.LanguageSpec, dir, srcPath, binPath, inputPath string) (result.ExecutionResult, error) {
	argv, err := expand(spec.RunCmdTpl, dir, srcPath, binPath)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	limit := time.Duration(req.EffectiveTimeLimitMs()) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir

	stdin, err := os.Open(inputPath)
	if err != nil {
		return result.ExecutionResult{}, appErr.Wrapf(err, appErr.SandboxError, "failed to open input file")
	}
	defer stdin.Close()
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = newCappedWriter(&stdout, maxOutputBytes)
	cmd.Stderr = newCappedWriter(&stderr, maxOutputBytes)

	runErr := cmd.Run()

	res := result.ExecutionResult{
		Output: strings.TrimRight(stdout.String(), "\n"),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Status = result.VerdictTimeout
		res.Error = "Time limit exceeded"
	case runErr != nil:
		exitCode := -1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		res.Status = result.VerdictError
		res.Error = friendlyError(spec.ID, strings.TrimSpace(stderr.String()), exitCode)
	default:
		res.Status = result.VerdictSuccess
		// Warnings land on stderr without failing the run; keep them.
		res.Error = strings.TrimSpace(stderr.String())
	}
	return res, nil
}

// expand resolves a command template into an argv slice.
func expand(tpl, dir, src, bin string) ([]string, error) {
	rep := strings.NewReplacer("{dir}", dir, "{src}", src, "{bin}", bin)
	argv, err := shlex.Split(rep.Replace(tpl))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SandboxError, "malformed command template %q", tpl)
	}
	if len(argv) == 0 {
		return nil, appErr.Newf(appErr.SandboxError, "empty command template %q", tpl)
	}
	return argv, nil
}

// cappedWriter discards bytes past the cap so a runaway program cannot
// blow up memory through its output streams.
type cappedWriter struct {
	buf *bytes.Buffer
	max int
}

func newCappedWriter(buf *bytes.Buffer, max int) *cappedWriter {
	return &cappedWriter{buf: buf, max: max}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	remain := w.max - w.buf.Len()
	if remain <= 0 {
		return len(p), nil
	}
	if len(p) > remain {
		w.buf.Write(p[:remain])
		return len(p), nil
	}
	return w.buf.Write(p)
}
