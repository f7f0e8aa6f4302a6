package webdav

import (
	"context"
	"sync"
)

type failuresKey struct{}

// ListFailures collects the paths List could not read during one operation.
type ListFailures struct {
	mu    sync.Mutex
	paths []string
}

// WithListFailures returns a context whose List calls record their
// failures in the returned collector.
func WithListFailures(ctx context.Context) (context.Context, *ListFailures) {
	f := &ListFailures{}
	return context.WithValue(ctx, failuresKey{}, f), f
}

func (f *ListFailures) add(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

// Paths returns the failed paths in the order they failed.
func (f *ListFailures) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func recordFailure(ctx context.Context, path string) {
	if f, ok := ctx.Value(failuresKey{}).(*ListFailures); ok {
		f.add(path)
	}
}
