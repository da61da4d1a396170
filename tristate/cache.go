// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tristate provides a key/value cache which distinguishes
// between confirmed present, confirmed absent and not yet looked up.
package tristate

import "sync"

// Status is the lookup state of a key.
type Status uint8

const (
	// Unknown means the key was never resolved. It's never stored.
	Unknown Status = iota
	// Absent means the key is confirmed not to exist.
	Absent
	// Present means the key maps to a value.
	Present
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Defined returns true if the status is Absent or Present.
func (s Status) Defined() bool {
	return s != Unknown
}

type entry[V any] struct {
	value  V
	absent bool
}

func (e *entry[V]) status() Status {
	if e.absent {
		return Absent
	}
	return Present
}

// Cache is a tri-state key/value cache. It's safe for concurrent use.
type Cache[K comparable, V any] struct {
	lock    sync.RWMutex
	entries map[K]*entry[V]
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*entry[V])}
}

// Get returns the value and the status for the given key.
// The value is the zero value unless the status is Present.
func (c *Cache[K, V]) Get(key K) (V, Status) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if e, ok := c.entries[key]; ok {
		return e.value, e.status()
	}
	var zero V
	return zero, Unknown
}

// Set marks the key Present with value v, overwriting any previous entry.
func (c *Cache[K, V]) Set(key K, v V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries[key] = &entry[V]{value: v}
}

// MarkAbsent marks the key confirmed absent.
func (c *Cache[K, V]) MarkAbsent(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries[key] = &entry[V]{absent: true}
}

// Forget removes the key, returning it to Unknown.
func (c *Cache[K, V]) Forget(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.entries, key)
}

// LoadOrStore returns the existing entry for the key if defined.
// Otherwise it stores v (present) or an absent marker and returns it.
// The loaded result is true if the entry was already defined.
func (c *Cache[K, V]) LoadOrStore(key K, v V, present bool) (V, Status, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.value, e.status(), true
	}
	e := &entry[V]{value: v, absent: !present}
	if !present {
		var zero V
		e.value = zero
	}
	c.entries[key] = e
	return e.value, e.status(), false
}

// Len returns the count of defined entries.
func (c *Cache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return len(c.entries)
}

// Range calls fn for each defined entry until fn returns false.
// The cache must not be modified from within fn.
func (c *Cache[K, V]) Range(fn func(key K, v V, status Status) bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for k, e := range c.entries {
		if !fn(k, e.value, e.status()) {
			return
		}
	}
}

// Clear drops all entries.
func (c *Cache[K, V]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries = make(map[K]*entry[V])
}
