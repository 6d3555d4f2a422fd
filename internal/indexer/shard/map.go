// Package shard provides a bucketed map for accumulating values from many
// goroutines at once. Keys are routed to a fixed number of buckets by
// key mod bucketCount and each bucket owns its own lock, so writers touching
// keys in different buckets never block each other.
package shard

import (
	"fmt"
	"sync"
)

// Key is the set of integer types a Map can be keyed by. Keys must be
// non-negative.
type Key interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

type bucket[K Key, V any] struct {
	mu     sync.RWMutex
	values map[K]*V
}

// Map is a fixed-bucket map with one lock per bucket.
type Map[K Key, V any] struct {
	buckets  []bucket[K, V]
	newValue func() V
}

// New creates a Map with bucketCount buckets. newValue builds the value
// stored on first access to a key; when nil the zero value is used.
func New[K Key, V any](bucketCount int, newValue func() V) *Map[K, V] {
	if bucketCount <= 0 {
		panic(fmt.Sprintf("shard: bucket count must be positive, got %d", bucketCount))
	}
	m := &Map[K, V]{
		buckets:  make([]bucket[K, V], bucketCount),
		newValue: newValue,
	}
	for i := range m.buckets {
		m.buckets[i].values = make(map[K]*V)
	}
	return m
}

// Access is a locked view of one value. The bucket lock is held until
// Release is called.
type Access[V any] struct {
	Value    *V
	unlock   func()
	released bool
}

// Release unlocks the bucket. Calling it more than once is a no-op.
func (a *Access[V]) Release() {
	if a.released {
		return
	}
	a.released = true
	a.Value = nil
	a.unlock()
}

func (m *Map[K, V]) bucketFor(key K) *bucket[K, V] {
	if key < 0 {
		panic(fmt.Sprintf("shard: negative key %v", key))
	}
	return &m.buckets[uint64(key)%uint64(len(m.buckets))]
}

// Access locks the bucket owning key and returns a handle to its value,
// creating the value if the key is new. Callers must Release the handle;
// prefer Update, which releases on every exit path.
func (m *Map[K, V]) Access(key K) *Access[V] {
	b := m.bucketFor(key)
	b.mu.Lock()
	v, ok := b.values[key]
	if !ok {
		v = new(V)
		if m.newValue != nil {
			*v = m.newValue()
		}
		b.values[key] = v
	}
	return &Access[V]{Value: v, unlock: b.mu.Unlock}
}

// Update runs fn against the value for key while holding the bucket lock.
func (m *Map[K, V]) Update(key K, fn func(v *V)) {
	a := m.Access(key)
	defer a.Release()
	fn(a.Value)
}

// Modify runs fn against an existing value under the bucket lock and deletes
// the key when fn returns false. Missing keys are left untouched and fn is not
// called; the return value reports whether the key was present.
func (m *Map[K, V]) Modify(key K, fn func(v *V) (keep bool)) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	if !ok {
		return false
	}
	if !fn(v) {
		delete(b.values, key)
	}
	return true
}

// Load returns the value for key without creating it. The returned pointer
// is only safe to read while no goroutine mutates the same key.
func (m *Map[K, V]) Load(key K) (*V, bool) {
	b := m.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Delete removes key from its bucket.
func (m *Map[K, V]) Delete(key K) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
}

// Len returns the total number of keys. Buckets are counted one at a time,
// so the result is only exact when no writer is active.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.RLock()
		n += len(b.values)
		b.mu.RUnlock()
	}
	return n
}

// Buckets returns the bucket count.
func (m *Map[K, V]) Buckets() int {
	return len(m.buckets)
}

// ToMap merges every bucket into a plain map. At most one bucket lock is held
// at a time. Intended for collecting results after parallel work completes.
func (m *Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V)
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.RLock()
		for k, v := range b.values {
			out[k] = *v
		}
		b.mu.RUnlock()
	}
	return out
}

// Range calls fn for every key, one bucket at a time, under the bucket read
// lock. fn must not call back into the Map.
func (m *Map[K, V]) Range(fn func(key K, v *V) bool) {
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.RLock()
		for k, v := range b.values {
			if !fn(k, v) {
				b.mu.RUnlock()
				return
			}
		}
		b.mu.RUnlock()
	}
}
