package service

import (
	"context"

	"codearena/pkg/logger"

	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/process"
	"codearena/internal/sandbox/remote"
)

// Selector picks the execution backend for a language. Local processes
// are preferred when the toolchain is installed; the remote provider
// takes over for compiled languages when it is not, except JavaScript
// which never leaves the host. The embedded VM backend is the floor
// that is always there.
type Selector struct {
	process *process.Runner
	remote  *remote.Client
	vm      sandbox.Runner
}

// NewSelector wires the backends. The remote client may be nil when no
// provider is configured.
func NewSelector(proc *process.Runner, rem *remote.Client, vm sandbox.Runner) *Selector {
	return &Selector{process: proc, remote: rem, vm: vm}
}

// Pick returns the runner to use for the language and a label for
// logging.
func (s *Selector) Pick(language lang.Language) (sandbox.Runner, string) {
	if s.process != nil && s.process.Available(language) {
		return s.process, "process"
	}
	if language != lang.JavaScript && s.remote != nil && s.remote.Supports(language) {
		return s.remote, "remote"
	}
	if s.vm != nil {
		return s.vm, "vm"
	}
	logger.Warnf(context.Background(), "no preferred backend for %s, falling back to process", language)
	return s.process, "process"
}
