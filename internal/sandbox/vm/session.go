package vm

import (
	"context"
	"sync"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/lang"
)

// session is one language's resolved engine. Init is memoized so
// concurrent first requests pay for exactly one load.
type session struct {
	chain Chain

	once          sync.Once
	engine        Engine
	usingFallback bool
	initErr       error
}

func (s *session) get(ctx context.Context) (Engine, bool, error) {
	s.once.Do(func() {
		s.engine, s.usingFallback, s.initErr = s.chain.Resolve(ctx)
	})
	return s.engine, s.usingFallback, s.initErr
}

// Registry holds one session per language and hands out engines.
type Registry struct {
	mu       sync.Mutex
	sessions map[lang.Language]*session
}

// NewRegistry builds a registry from the per-language loader chains.
func NewRegistry(chains map[lang.Language]Chain) *Registry {
	sessions := make(map[lang.Language]*session, len(chains))
	for l, c := range chains {
		sessions[l] = &session{chain: c}
	}
	return &Registry{sessions: sessions}
}

// Engine returns the language's engine, loading it on first use. The
// bool reports whether a fallback engine answered instead of the
// primary.
func (r *Registry) Engine(ctx context.Context, language lang.Language) (Engine, bool, error) {
	r.mu.Lock()
	s, ok := r.sessions[language]
	r.mu.Unlock()
	if !ok {
		return nil, false, appErr.Newf(appErr.LanguageNotSupported, "no engine chain for language %s", language)
	}
	return s.get(ctx)
}

// Close shuts down every engine that actually loaded. Sessions that
// never initialized, or failed to, are skipped.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for l, s := range r.sessions {
		if s.engine == nil {
			continue
		}
		if err := s.engine.Close(); err != nil {
			logger.Warnf(context.Background(), "failed to close %s engine: %v", l, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
