package compute

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// Register makes a backend available by its name. Backend packages call it
// from init. A backend registered under an existing name replaces it.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[b.Name()] = b
}

// Lookup returns the backend registered as name.
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return nil, &ConfigError{Field: "backend", Index: -1, Msg: fmt.Sprintf("%q not registered, have %v", name, availableLocked())}
	}
	return b, nil
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return availableLocked()
}

func availableLocked() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
