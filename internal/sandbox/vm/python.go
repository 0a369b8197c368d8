package vm

import "context"

// NewPythonLoader loads the WASI Python interpreter from the mirror
// list. The artifact is cached by the fetcher, so only the first load
// per process pays the download.
func NewPythonLoader(fetcher *ArtifactFetcher, mirrors []string) Loader {
	return LoaderFunc{
		LoaderName: "python-wasm",
		Fn: func(ctx context.Context) (Engine, error) {
			artifact, err := fetcher.Fetch(ctx, "python.wasm", mirrors)
			if err != nil {
				return nil, err
			}
			return newWasmEngine(ctx, "python-wasm", artifact, func(code string) []string {
				return []string{"python", "-c", code}
			})
		},
	}
}
