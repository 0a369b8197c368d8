// Package vm executes submissions inside engines embedded in the
// service process. Real interpreters are loaded on demand and a
// heuristic fallback keeps every language serviceable when loading
// fails.
package vm

import (
	"context"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

// EngineOutput is what an engine produced for one run.
type EngineOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Engine runs prepared source code. Implementations own their
// interpreter state and must be safe to Close after a partial init.
type Engine interface {
	Name() string
	Exec(ctx context.Context, code, stdin string) (EngineOutput, error)
	Close() error
}

// Loader constructs an engine, typically by fetching and compiling an
// interpreter artifact. Loading is expensive and done once per
// language session.
type Loader interface {
	Name() string
	Load(ctx context.Context) (Engine, error)
}

// LoaderFunc adapts a function into a Loader.
type LoaderFunc struct {
	LoaderName string
	Fn         func(ctx context.Context) (Engine, error)
}

func (l LoaderFunc) Name() string { return l.LoaderName }

func (l LoaderFunc) Load(ctx context.Context) (Engine, error) { return l.Fn(ctx) }

// Chain walks loaders in order and returns the first engine that
// loads, reporting whether anything but the primary was used.
type Chain struct {
	Primary   Loader
	Fallbacks []Loader
}

// Resolve loads the first working engine. The returned flag is true
// when the primary loader failed and a fallback took over.
func (c Chain) Resolve(ctx context.Context) (Engine, bool, error) {
	if c.Primary != nil {
		eng, err := c.Primary.Load(ctx)
		if err == nil {
			return eng, false, nil
		}
		logger.Warnf(ctx, "engine %s failed to load, trying fallbacks: %v", c.Primary.Name(), err)
	}
	for _, l := range c.Fallbacks {
		eng, err := l.Load(ctx)
		if err == nil {
			return eng, true, nil
		}
		logger.Warnf(ctx, "fallback engine %s failed to load: %v", l.Name(), err)
	}
	return nil, false, appErr.New(appErr.EngineLoadFailed).WithMessage("no engine could be loaded")
}
