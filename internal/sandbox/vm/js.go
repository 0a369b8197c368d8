package vm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	appErr "codearena/pkg/errors"
)

// jsEngine runs JavaScript on an embedded interpreter. Each Exec gets
// a fresh runtime so submissions cannot see each other's globals; the
// mutex only bounds concurrent interpreter instances per session.
type jsEngine struct {
	mu sync.Mutex
}

// NewJSLoader returns the loader for the embedded JavaScript engine.
func NewJSLoader() Loader {
	return LoaderFunc{
		LoaderName: "goja",
		Fn: func(ctx context.Context) (Engine, error) {
			return &jsEngine{}, nil
		},
	}
}

func (e *jsEngine) Name() string { return "goja" }

func (e *jsEngine) Exec(ctx context.Context, code, stdin string) (EngineOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out strings.Builder
	inputLines := strings.Split(strings.TrimRight(stdin, "\n"), "\n")
	inputIdx := 0

	rt := goja.New()
	console := rt.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, formatJSValue(a))
		}
		out.WriteString(strings.Join(parts, " "))
		out.WriteString("\n")
		return goja.Undefined()
	}
	if err := console.Set("log", logFn); err != nil {
		return EngineOutput{}, appErr.Wrapf(err, appErr.EngineNotReady, "failed to install console.log")
	}
	if err := console.Set("error", logFn); err != nil {
		return EngineOutput{}, appErr.Wrapf(err, appErr.EngineNotReady, "failed to install console.error")
	}
	if err := rt.Set("console", console); err != nil {
		return EngineOutput{}, appErr.Wrapf(err, appErr.EngineNotReady, "failed to install console")
	}
	if err := rt.Set("readline", func() string {
		if inputIdx >= len(inputLines) {
			return ""
		}
		line := inputLines[inputIdx]
		inputIdx++
		return line
	}); err != nil {
		return EngineOutput{}, appErr.Wrapf(err, appErr.EngineNotReady, "failed to install readline")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rt.Interrupt("time limit exceeded")
		case <-done:
		}
	}()

	_, runErr := rt.RunString(code)
	if runErr != nil {
		if ctx.Err() != nil {
			return EngineOutput{Stdout: out.String()}, context.DeadlineExceeded
		}
		return EngineOutput{
			Stdout:   out.String(),
			Stderr:   jsErrorMessage(runErr),
			ExitCode: 1,
		}, nil
	}
	return EngineOutput{Stdout: out.String()}, nil
}

func (e *jsEngine) Close() error { return nil }

func formatJSValue(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	exported := v.Export()
	switch ev := exported.(type) {
	case nil:
		return "null"
	case string:
		return ev
	case time.Time:
		return ev.String()
	default:
		return fmt.Sprintf("%v", exported)
	}
}

// jsErrorMessage maps interpreter failures onto the message shapes the
// rest of the pipeline expects.
func jsErrorMessage(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		msg := ex.Value().String()
		switch {
		case strings.Contains(msg, "ReferenceError"):
			return "Reference error: " + msg
		case strings.Contains(msg, "TypeError"):
			return "Type error: " + msg
		case strings.Contains(msg, "SyntaxError"):
			return "Syntax error: " + msg
		}
		return msg
	}
	msg := err.Error()
	if strings.Contains(msg, "SyntaxError") {
		return "Syntax error: " + msg
	}
	return msg
}
