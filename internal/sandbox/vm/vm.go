package vm

import (
	"context"
	"errors"
	"strings"
	"time"

	appErr "codearena/pkg/errors"

	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/result"
)

// Config wires the embedded engines.
type Config struct {
	ArtifactCacheDir string   `yaml:"artifactCacheDir"`
	PythonMirrors    []string `yaml:"pythonMirrors"`
	CPPMirrors       []string `yaml:"cppMirrors"`
}

// Runner executes submissions on in-process engines. It satisfies
// sandbox.Runner and needs no external toolchain or network beyond the
// one-time artifact fetch.
type Runner struct {
	registry *Registry
}

// NewRunner builds a VM runner with the default chains: real engines
// first, heuristics as the safety net. Java has no embeddable
// interpreter and goes straight to the heuristic.
func NewRunner(cfg Config) *Runner {
	fetcher := NewArtifactFetcher(cfg.ArtifactCacheDir)
	chains := map[lang.Language]Chain{
		lang.JavaScript: {
			Primary:   NewJSLoader(),
			Fallbacks: []Loader{NewHeuristicLoader(lang.JavaScript)},
		},
		lang.Python: {
			Primary:   NewPythonLoader(fetcher, cfg.PythonMirrors),
			Fallbacks: []Loader{NewHeuristicLoader(lang.Python)},
		},
		lang.CPP: {
			Primary:   NewCPPLoader(fetcher, cfg.CPPMirrors),
			Fallbacks: []Loader{NewHeuristicLoader(lang.CPP)},
		},
		lang.Java: {
			Primary: NewHeuristicLoader(lang.Java),
		},
	}
	return &Runner{registry: NewRegistry(chains)}
}

// NewRunnerWithRegistry is the injection point for tests.
func NewRunnerWithRegistry(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// Execute runs the submission on the language's engine. Timing covers
// engine initialization too, a cold first run is honestly slower.
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

	engine, usingFallback, err := r.registry.Engine(ctx, req.Language)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	limit := time.Duration(req.EffectiveTimeLimitMs()) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	out, execErr := engine.Exec(runCtx, code, req.Stdin)

	res := result.ExecutionResult{
		Output:        strings.TrimRight(out.Stdout, "\n"),
		UsingFallback: usingFallback,
	}

	switch {
	case errors.Is(execErr, context.DeadlineExceeded):
		res.Status = result.VerdictTimeout
		res.Error = "Time limit exceeded"
	case execErr != nil:
		return result.ExecutionResult{}, execErr
	case out.ExitCode != 0, out.Stderr != "":
		res.Status = result.VerdictError
		res.Error = engineError(out)
	default:
		res.Status = result.VerdictSuccess
	}

	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	res.Normalize()
	return res, nil
}

// Close releases every loaded engine.
func (r *Runner) Close() error {
	return r.registry.Close()
}

func engineError(out EngineOutput) string {
	msg := strings.TrimSpace(out.Stderr)
	if msg == "" {
		return "Execution failed: process exited with a non-zero status"
	}
	if strings.HasPrefix(msg, "Syntax error") || strings.HasPrefix(msg, "Reference error") ||
		strings.HasPrefix(msg, "Type error") {
		return msg
	}
	return "Execution failed: " + msg
}
