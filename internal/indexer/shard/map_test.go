package shard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessCreatesDefaultValue(t *testing.T) {
	m := New[int, float64](4, nil)

	a := m.Access(7)
	require.NotNil(t, a.Value)
	assert.Equal(t, 0.0, *a.Value)
	*a.Value += 1.5
	a.Release()
	a.Release()

	v, ok := m.Load(7)
	require.True(t, ok)
	assert.Equal(t, 1.5, *v)

	_, ok = m.Load(8)
	assert.False(t, ok, "Load must not create keys")
}

func TestNewValueConstructor(t *testing.T) {
	m := New[int, map[int]float64](3, func() map[int]float64 {
		return make(map[int]float64)
	})
	m.Update(2, func(v *map[int]float64) {
		(*v)[10] = 0.25
	})
	v, ok := m.Load(2)
	require.True(t, ok)
	assert.Equal(t, map[int]float64{10: 0.25}, *v)
}

func TestUpdateReleasesOnPanic(t *testing.T) {
	m := New[int, int](1, nil)
	assert.Panics(t, func() {
		m.Update(1, func(v *int) { panic("boom") })
	})
	// The single bucket must be unlocked again.
	m.Update(1, func(v *int) { *v = 3 })
	assert.Equal(t, map[int]int{1: 3}, m.ToMap())
}

func TestConcurrentAccumulation(t *testing.T) {
	m := New[int, float64](7, nil)
	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Update(i%50, func(v *float64) { *v++ })
			}
		}()
	}
	wg.Wait()

	out := m.ToMap()
	require.Len(t, out, 50)
	for k, v := range out {
		assert.Equal(t, float64(workers*perWorker/50), v, "key %d", k)
	}
	assert.Equal(t, 50, m.Len())
}

func TestDeleteAndRange(t *testing.T) {
	m := New[int, int](2, nil)
	for i := 0; i < 6; i++ {
		m.Update(i, func(v *int) { *v = i * i })
	}
	m.Delete(4)
	m.Delete(100)

	seen := make(map[int]int)
	m.Range(func(k int, v *int) bool {
		seen[k] = *v
		return true
	})
	assert.Equal(t, map[int]int{0: 0, 1: 1, 2: 4, 3: 9, 5: 25}, seen)

	count := 0
	m.Range(func(int, *int) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestPreconditions(t *testing.T) {
	assert.Panics(t, func() { New[int, int](0, nil) })
	m := New[int, int](4, nil)
	assert.Panics(t, func() { m.Access(-1) })
	assert.Equal(t, 4, m.Buckets())
}
