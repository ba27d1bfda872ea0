package collection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueues_EnqueueDrain(t *testing.T) {
	q := NewQueues[string, int]()
	assert.True(t, q.Enqueue("a", 1))
	assert.False(t, q.Enqueue("a", 2))
	assert.True(t, q.Enqueue("b", 3))
	assert.Equal(t, 2, q.Len("a"))

	assert.Equal(t, []int{1, 2}, q.Drain("a"))
	assert.Equal(t, 0, q.Len("a"))
	assert.Nil(t, q.Drain("a"))
	assert.True(t, q.Enqueue("a", 4), "drained key starts a new list")
}

func TestQueues_ConcurrentEnqueue(t *testing.T) {
	q := NewQueues[string, int]()
	var wg sync.WaitGroup
	var mux sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if q.Enqueue("scope", i) {
				mux.Lock()
				created++
				mux.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Len(t, q.Drain("scope"), 50)
}
