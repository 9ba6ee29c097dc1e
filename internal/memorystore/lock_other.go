//go:build !unix

package memorystore

import "sync"

var (
	locksMu sync.Mutex
	locks   = map[string]*sync.Mutex{}
)

// lockFile serializes writers within this process only. Platforms without
// flock get no cross-process exclusion.
func lockFile(path string) (release func() error, err error) {
	locksMu.Lock()
	mu, ok := locks[path]
	if !ok {
		mu = &sync.Mutex{}
		locks[path] = mu
	}
	locksMu.Unlock()

	mu.Lock()
	return func() error {
		mu.Unlock()
		return nil
	}, nil
}
