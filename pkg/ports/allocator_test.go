package ports

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocator_ReserveRelease(t *testing.T) {
	a := NewAllocator()

	assert.False(t, a.IsReserved(25565))

	a.Reserve(25565)
	assert.True(t, a.IsReserved(25565))
	assert.Equal(t, 1, a.Count())

	// Duplicate reservation is a no-op, not an error.
	a.Reserve(25565)
	assert.Equal(t, 1, a.Count())

	a.Release(25565)
	assert.False(t, a.IsReserved(25565))
	assert.Equal(t, 0, a.Count())

	// Releasing a free port is a no-op.
	a.Release(25565)
	assert.Equal(t, 0, a.Count())
}

func TestAllocator_TryReserve(t *testing.T) {
	a := NewAllocator()

	assert.True(t, a.TryReserve(25565))
	assert.False(t, a.TryReserve(25565))

	a.Release(25565)
	assert.True(t, a.TryReserve(25565))
}

func TestAllocator_TryReserveRace(t *testing.T) {
	a := NewAllocator()

	var wg sync.WaitGroup
	wins := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- a.TryReserve(25565)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one contender may claim the port")
}

func TestAllocator_ConcurrentAccess(t *testing.T) {
	a := NewAllocator()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			a.Reserve(port)
		}(10000 + i)
	}
	wg.Wait()

	assert.Equal(t, 100, a.Count())
	for i := 0; i < 100; i++ {
		assert.True(t, a.IsReserved(10000+i))
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			a.Release(port)
		}(10000 + i)
	}
	wg.Wait()

	assert.Equal(t, 0, a.Count())
}
