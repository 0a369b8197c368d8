package vm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	appErr "codearena/pkg/errors"
)

var fakeWasm = append([]byte{0x00, 0x61, 0x73, 0x6d}, []byte("payload")...)

func TestFetchFirstMirror(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fakeWasm)
	}))
	defer srv.Close()

	f := NewArtifactFetcher(t.TempDir())
	data, err := f.Fetch(context.Background(), "python.wasm", []string{srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != string(fakeWasm) {
		t.Error("artifact bytes mangled")
	}
}

func TestFetchFallsThroughBadMirrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer bad.Close()
	notWasm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>mirror is down</html>"))
	}))
	defer notWasm.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fakeWasm)
	}))
	defer good.Close()

	f := NewArtifactFetcher(t.TempDir())
	data, err := f.Fetch(context.Background(), "python.wasm", []string{bad.URL, notWasm.URL, good.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !isWasm(data) {
		t.Error("expected wasm bytes")
	}
}

func TestFetchAllMirrorsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	f := NewArtifactFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), "python.wasm", []string{bad.URL})
	if appErr.GetCode(err) != appErr.ArtifactFetchFailed {
		t.Fatalf("err = %v, want artifact fetch failure", err)
	}
}

func TestFetchUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(fakeWasm)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	f := NewArtifactFetcher(cacheDir)

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), "python.wasm", []string{srv.URL}); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("mirror hit %d times, want 1", calls)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "python.wasm")); err != nil {
		t.Errorf("artifact not cached: %v", err)
	}
}

func TestFetchIgnoresCorruptCache(t *testing.T) {
	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, "python.wasm"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fakeWasm)
	}))
	defer srv.Close()

	f := NewArtifactFetcher(cacheDir)
	data, err := f.Fetch(context.Background(), "python.wasm", []string{srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !isWasm(data) {
		t.Error("expected wasm bytes, got cache garbage")
	}
}
