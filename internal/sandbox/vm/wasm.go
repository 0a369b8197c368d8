package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	appErr "codearena/pkg/errors"
)

// wasmEngine wraps a compiled WASI interpreter module. The module is
// compiled once at load time; every Exec instantiates it fresh so runs
// cannot leak state into each other.
type wasmEngine struct {
	name     string
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	// buildArgs turns submitted source into the interpreter argv.
	buildArgs func(code string) []string
}

// newWasmEngine compiles artifact into a reusable engine.
func newWasmEngine(ctx context.Context, name string, artifact []byte, buildArgs func(code string) []string) (*wasmEngine, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	compiled, err := rt.CompileModule(ctx, artifact)
	if err != nil {
		rt.Close(ctx)
		return nil, appErr.Wrapf(err, appErr.EngineLoadFailed, "failed to compile interpreter module for %s", name)
	}
	return &wasmEngine{
		name:      name,
		runtime:   rt,
		compiled:  compiled,
		buildArgs: buildArgs,
	}, nil
}

func (e *wasmEngine) Name() string { return e.name }

func (e *wasmEngine) Exec(ctx context.Context, code, stdin string) (EngineOutput, error) {
	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStdin(strings.NewReader(stdin)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs(e.buildArgs(code)...)

	mod, err := e.runtime.InstantiateModule(ctx, e.compiled, cfg)
	if mod != nil {
		mod.Close(ctx)
	}

	out := EngineOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 0 {
				return out, nil
			}
			out.ExitCode = int(exitErr.ExitCode())
			return out, nil
		}
		if ctx.Err() != nil {
			return out, context.DeadlineExceeded
		}
		return out, appErr.Wrapf(err, appErr.SandboxError, "interpreter module faulted")
	}
	return out, nil
}

func (e *wasmEngine) Close() error {
	if e.runtime == nil {
		return nil
	}
	return e.runtime.Close(context.Background())
}
