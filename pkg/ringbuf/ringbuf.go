// Package ringbuf provides a fixed-capacity FIFO which overwrites the oldest
// item when full.
//
// For a real-time control link the freshest item matters more than completeness,
// so Put never fails and never blocks. Storage is allocated once in New.
// All operations are guarded by a mutex, so one producer goroutine and one
// consumer goroutine may use the same Buffer concurrently.
package ringbuf

import "sync"

// Buffer is a fixed-capacity ring of T.
type Buffer[T any] struct {
	items []T
	head  int // next write
	tail  int // next read
	count int
	lock  sync.Mutex
}

// New creates a Buffer holding at most capacity items.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Put appends an item. When the buffer is full the oldest item is dropped
// and true is returned.
func (b *Buffer[T]) Put(item T) (evicted bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.items[b.head] = item
	b.head = b.next(b.head)
	if b.count == len(b.items) {
		b.tail = b.next(b.tail)
		return true
	}
	b.count++
	return false
}

// Get removes and returns the oldest item. ok is false iff the buffer is empty.
func (b *Buffer[T]) Get() (item T, ok bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.count == 0 {
		return
	}
	item, ok = b.items[b.tail], true
	var zero T
	b.items[b.tail] = zero
	b.tail = b.next(b.tail)
	b.count--
	return
}

// Count returns the number of buffered items.
func (b *Buffer[T]) Count() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.count
}

// Cap returns the capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// IsEmpty checks if no item is buffered.
func (b *Buffer[T]) IsEmpty() bool {
	return b.Count() == 0
}

// IsFull checks if the next Put will drop an item.
func (b *Buffer[T]) IsFull() bool {
	return b.Count() == len(b.items)
}

// Clear drops all items.
func (b *Buffer[T]) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.tail, b.count = 0, 0, 0
}

func (b *Buffer[T]) next(i int) int {
	if i++; i == len(b.items) {
		return 0
	}
	return i
}
