// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package concurrent provides data structures safe for use by many goroutines.
package concurrent

import "sync"

// Cache is a lazily populated map. Values are created at most once per
// key by [Cache.GetOr] and are never evicted.
type Cache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewCache
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		data: make(map[K]V),
	}
}

// Get returns the value stored for k, if any.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.data[k]
	return v, ok
}

// GetOr returns the value stored for k or stores and returns the result of f.
// If f fails nothing is stored and the error is returned.
func (c *Cache[K, V]) GetOr(k K, f func() (V, error)) (V, error) {
	v, ok := c.Get(k)
	if ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok = c.data[k]
	if ok {
		return v, nil
	}

	v, err := f()
	if err != nil {
		return v, err
	}
	c.data[k] = v
	return v, nil
}

// Len reports the number of stored values.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}
