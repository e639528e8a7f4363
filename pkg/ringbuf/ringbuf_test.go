package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferFIFO(t *testing.T) {
	b := New[int](4)
	require.True(t, b.IsEmpty())
	require.False(t, b.IsFull())
	require.Equal(t, 4, b.Cap())

	for i := 1; i <= 3; i++ {
		require.False(t, b.Put(i))
	}
	require.Equal(t, 3, b.Count())
	for i := 1; i <= 3; i++ {
		v, ok := b.Get()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := b.Get()
	require.False(t, ok)
	require.True(t, b.IsEmpty())
}

func TestBufferOverwriteOldest(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 4; i++ {
		require.False(t, b.Put(i))
	}
	require.True(t, b.IsFull())
	require.True(t, b.Put(5))
	require.Equal(t, 4, b.Count())
	for i := 2; i <= 5; i++ {
		v, ok := b.Get()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.True(t, b.IsEmpty())
}

func TestBufferWrapAround(t *testing.T) {
	b := New[byte](3)
	var got []byte
	for i := 0; i < 20; i++ {
		b.Put(byte(i))
		if i%2 == 1 {
			v, ok := b.Get()
			require.True(t, ok)
			got = append(got, v)
		}
	}
	for !b.IsEmpty() {
		v, _ := b.Get()
		got = append(got, v)
	}
	require.Equal(t, []byte{0, 1, 3, 5, 7, 9, 11, 13, 15, 17, 18, 19}, got)
}

func TestBufferClear(t *testing.T) {
	b := New[string](2)
	b.Put("a")
	b.Put("b")
	b.Put("c")
	b.Clear()
	require.True(t, b.IsEmpty())
	require.Equal(t, 0, b.Count())
	b.Put("d")
	v, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, "d", v)
}

func TestBufferMinCapacity(t *testing.T) {
	b := New[int](0)
	require.Equal(t, 1, b.Cap())
	b.Put(1)
	require.True(t, b.Put(2))
	v, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestBufferProducerConsumer(t *testing.T) {
	const total = 10000
	b := New[int](16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			b.Put(i)
		}
	}()
	last := -1
	for received := 0; ; {
		v, ok := b.Get()
		if !ok {
			if received > 0 && last == total-1 {
				break
			}
			continue
		}
		require.Truef(t, v > last, "got %d after %d", v, last)
		last = v
		received++
	}
	wg.Wait()
	require.True(t, b.IsEmpty())
}
