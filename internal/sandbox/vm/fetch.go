package vm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// ArtifactFetcher downloads interpreter artifacts from a list of
// mirrors and caches them on disk. A cached copy short-circuits the
// network entirely.
type ArtifactFetcher struct {
	CacheDir       string
	HTTPClient     *http.Client
	AttemptTimeout time.Duration
}

// NewArtifactFetcher builds a fetcher caching under cacheDir.
func NewArtifactFetcher(cacheDir string) *ArtifactFetcher {
	return &ArtifactFetcher{
		CacheDir:       cacheDir,
		HTTPClient:     &http.Client{},
		AttemptTimeout: 30 * time.Second,
	}
}

// Fetch returns the artifact bytes for name, trying the cache first
// and then each mirror in order. A corrupt download is rejected by the
// wasm magic check and the next mirror is tried.
func (f *ArtifactFetcher) Fetch(ctx context.Context, name string, mirrors []string) ([]byte, error) {
	cachePath := filepath.Join(f.CacheDir, name)
	if data, err := os.ReadFile(cachePath); err == nil && isWasm(data) {
		return data, nil
	}

	var lastErr error
	for _, url := range mirrors {
		data, err := f.fetchOne(ctx, url)
		if err != nil {
			logger.Warnf(ctx, "artifact mirror %s failed: %v", url, err)
			lastErr = err
			continue
		}
		if !isWasm(data) {
			lastErr = appErr.Newf(appErr.ArtifactFetchFailed, "mirror %s returned a non-wasm artifact", url)
			logger.Warn(ctx, lastErr.Error())
			continue
		}
		f.cache(cachePath, data)
		return data, nil
	}

	if lastErr == nil {
		lastErr = appErr.Newf(appErr.ArtifactFetchFailed, "no mirrors configured for artifact %s", name)
	}
	return nil, appErr.Wrapf(lastErr, appErr.ArtifactFetchFailed, "all mirrors exhausted for artifact %s", name)
}

func (f *ArtifactFetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErr.Newf(appErr.ArtifactFetchFailed, "mirror returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// cache writes the artifact best-effort. A failed cache write is not a
// reason to fail the load that just succeeded.
func (f *ArtifactFetcher) cache(path string, data []byte) {
	if f.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		logger.Warnf(context.Background(), "failed to create artifact cache dir: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warnf(context.Background(), "failed to cache artifact %s: %v", path, err)
	}
}

func isWasm(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], wasmMagic)
}
