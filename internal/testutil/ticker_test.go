package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicker_Advances(t *testing.T) {
	c := NewTicker(Epoch(), time.Second)

	assert.Equal(t, Epoch(), c.Now())
	assert.Equal(t, Epoch().Add(time.Second), c.Now())
	assert.Equal(t, Epoch().Add(2*time.Second), c.Now())
}

func TestTicker_FrozenWhenStepZero(t *testing.T) {
	c := NewTicker(Epoch(), 0)

	assert.Equal(t, Epoch(), c.Now())
	assert.Equal(t, Epoch(), c.Now())
}

func TestTicker_Reset(t *testing.T) {
	c := NewTicker(Epoch(), time.Minute)
	c.Now()
	c.Now()

	c.Reset(Epoch())
	assert.Equal(t, Epoch(), c.Now())
}

func TestTicker_ConcurrentUnique(t *testing.T) {
	c := NewTicker(Epoch(), time.Millisecond)

	var mu sync.Mutex
	seen := map[time.Time]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				now := c.Now()
				mu.Lock()
				assert.False(t, seen[now])
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
