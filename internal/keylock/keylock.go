// Package keylock serializes work per string key. The engine uses it
// to apply (learner, KC) state updates in submission order: two
// concurrent answers for the same learner and KC must not race on the
// read-modify-write of the skill state.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex provides one mutex per key. Unused entries are reclaimed
// when the last holder unlocks.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a ready KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock
// function. Callers typically defer the returned func.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
