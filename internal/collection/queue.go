package collection

import "sync"

// Queues is a mutex guarded map of ordered value lists. A key is present only
// between its first Enqueue and the matching Drain.
type Queues[K comparable, V any] struct {
	m   map[K][]V
	mux sync.RWMutex
}

// Enqueue appends v to the list for k and reports whether it created the list.
func (q *Queues[K, V]) Enqueue(k K, v V) bool {
	q.mux.Lock()
	defer q.mux.Unlock()
	values, ok := q.m[k]
	q.m[k] = append(values, v)
	return !ok
}

// Drain removes the list for k and returns it in insertion order.
func (q *Queues[K, V]) Drain(k K) []V {
	q.mux.Lock()
	defer q.mux.Unlock()
	values := q.m[k]
	delete(q.m, k)
	return values
}

// Len returns the number of values queued for k.
func (q *Queues[K, V]) Len(k K) int {
	q.mux.RLock()
	defer q.mux.RUnlock()
	return len(q.m[k])
}

func NewQueues[K comparable, V any]() *Queues[K, V] {
	return &Queues[K, V]{m: make(map[K][]V)}
}
