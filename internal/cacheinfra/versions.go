package cacheinfra

import (
	"strings"
	"sync"
)

// keyVersions stamps keys with a counter while a load for them is running.
// Invalidations bump the counter of every tracked key they touch, so a load
// that overlapped an invalidation can tell its result is stale. Entries are
// dropped once the last load for a key ends.
type keyVersions struct {
	mu      sync.Mutex
	entries map[string]*keyVersion
}

type keyVersion struct {
	loads   int
	version uint64
}

func newKeyVersions() *keyVersions {
	return &keyVersions{entries: make(map[string]*keyVersion)}
}

// begin registers a load for key and returns its stamp.
func (v *keyVersions) begin(key string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[key]
	if !ok {
		e = &keyVersion{}
		v.entries[key] = e
	}
	e.loads++
	return e.version
}

// end releases a load for key and reports whether key was left untouched
// since begin returned stamp.
func (v *keyVersions) end(key string, stamp uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[key]
	if !ok {
		return false
	}
	unchanged := e.version == stamp
	e.loads--
	if e.loads <= 0 {
		delete(v.entries, key)
	}
	return unchanged
}

func (v *keyVersions) bump(keys ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, key := range keys {
		if e, ok := v.entries[key]; ok {
			e.version++
		}
	}
}

func (v *keyVersions) bumpPrefix(prefix string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for key, e := range v.entries {
		if strings.HasPrefix(key, prefix) {
			e.version++
		}
	}
}
