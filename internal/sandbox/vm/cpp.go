package vm

import "context"

// NewCPPLoader loads a WASI C++ interpreter. The interpreter reads the
// translation unit from its argv, same contract as the Python engine.
func NewCPPLoader(fetcher *ArtifactFetcher, mirrors []string) Loader {
	return LoaderFunc{
		LoaderName: "cpp-wasm",
		Fn: func(ctx context.Context) (Engine, error) {
			artifact, err := fetcher.Fetch(ctx, "cpp.wasm", mirrors)
			if err != nil {
				return nil, err
			}
			return newWasmEngine(ctx, "cpp-wasm", artifact, func(code string) []string {
				return []string{"cpp-interp", "-e", code}
			})
		},
	}
}
