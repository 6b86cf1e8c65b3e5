package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTxLockRegistry(t *testing.T) {
	r := NewTxLockRegistry()

	assert.False(t, r.IsLocked(1))
	assert.True(t, r.TryAcquire(1))
	assert.True(t, r.IsLocked(1))

	// 占着的拿不到
	assert.False(t, r.TryAcquire(1))
	// 不影响别的用户
	assert.True(t, r.TryAcquire(2))

	r.Release(1)
	assert.False(t, r.IsLocked(1))
	assert.True(t, r.TryAcquire(1))
}

// 并发抢同一个用户的锁，只能有一个赢家
func TestTxLockRegistryConcurrent(t *testing.T) {
	r := NewTxLockRegistry()

	const n = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAcquire(42) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.True(t, r.IsLocked(42))
}
