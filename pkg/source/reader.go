// Package source provides byte sources feeding a receiver.
package source

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/ringbuf"
)

// DefaultBufferSize is the number of bytes buffered between polls.
const DefaultBufferSize = 1024

const readChunkSize = 64

// bitsPerByte is the UART character length used to back-date bytes of a
// chunk: start bit, 8 data bits and a stop bit.
const bitsPerByte = 10

type timedByte struct {
	b  byte
	at time.Time
}

// Opener opens the underlying stream at the baud rate.
type Opener func(baudRate int) (io.ReadCloser, error)

// Reader buffers bytes read by a background goroutine. The buffer keeps the
// most recent bytes when the consumer polls too slowly. Each byte carries
// the time it came off the line, so gaps can be measured independently of
// how often the consumer polls.
type Reader struct {
	Name string
	// Clock stamps arriving bytes, time.Now when nil.
	Clock func() time.Time

	open    Opener
	fifo    *ringbuf.Buffer[timedByte]
	dropped uint32

	lock   sync.Mutex
	stream io.ReadCloser
	closed bool
	done   chan struct{}
	err    error
}

// NewReader creates a Reader. The stream is opened by Begin.
func NewReader(name string, open Opener, bufSize int) *Reader {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Reader{
		Name: name,
		open: open,
		fifo: ringbuf.New[timedByte](bufSize),
		done: closedCh(),
	}
}

// NewStreamReader wraps an already opened stream, ignoring baud rate.
func NewStreamReader(name string, stream io.ReadCloser, bufSize int) *Reader {
	return NewReader(name, func(int) (io.ReadCloser, error) {
		return stream, nil
	}, bufSize)
}

func closedCh() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Begin opens the stream and starts reading. An opened stream is closed and
// reopened.
func (r *Reader) Begin(baudRate int) error {
	r.Close()
	stream, err := r.open(baudRate)
	if err != nil {
		return err
	}
	r.fifo.Clear()
	done := make(chan struct{})
	r.lock.Lock()
	r.stream, r.closed, r.done, r.err = stream, false, done, nil
	r.lock.Unlock()
	glog.V(2).Infof("source %s: opened at %d", r.Name, baudRate)
	go r.readLoop(stream, done, ByteTime(baudRate))
	return nil
}

// ByteTime is the time one byte occupies the line at baudRate, zero when
// the baud rate is unknown.
func ByteTime(baudRate int) time.Duration {
	if baudRate <= 0 {
		return 0
	}
	return time.Second * bitsPerByte / time.Duration(baudRate)
}

// readLoop stamps the last byte of each chunk with the read time and the
// ones before it a byteTime earlier each.
func (r *Reader) readLoop(stream io.Reader, done chan struct{}, byteTime time.Duration) {
	defer close(done)
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			now := clock()
			for i, b := range buf[:n] {
				at := now.Add(-time.Duration(n-1-i) * byteTime)
				if r.fifo.Put(timedByte{b: b, at: at}) {
					atomic.AddUint32(&r.dropped, 1)
				}
			}
		}
		if err != nil {
			r.lock.Lock()
			if r.closed {
				err = ErrClosed
			}
			r.err = err
			r.lock.Unlock()
			if err != io.EOF && err != ErrClosed {
				glog.Warningf("source %s: read: %v", r.Name, err)
			} else {
				glog.V(2).Infof("source %s: %v", r.Name, err)
			}
			return
		}
	}
}

// Buffered returns the number of bytes readable without blocking.
func (r *Reader) Buffered() int {
	return r.fifo.Count()
}

// ReadByte implements io.ByteReader. It never blocks.
func (r *Reader) ReadByte() (byte, error) {
	b, _, err := r.ReadByteAt()
	return b, err
}

// ReadByteAt is ReadByte also returning when the byte arrived.
func (r *Reader) ReadByteAt() (byte, time.Time, error) {
	if item, ok := r.fifo.Get(); ok {
		return item.b, item.at, nil
	}
	if err := r.Err(); err != nil {
		return 0, time.Time{}, err
	}
	return 0, time.Time{}, ErrEmpty
}

// Dropped returns the number of bytes overwritten before being read.
func (r *Reader) Dropped() uint32 {
	return atomic.LoadUint32(&r.dropped)
}

// Err returns the error which stopped the read loop.
func (r *Reader) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}

// Done is closed when the read loop stops.
func (r *Reader) Done() <-chan struct{} {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.done
}

// Close closes the stream and waits for the read loop to stop.
// Buffered bytes remain readable.
func (r *Reader) Close() error {
	r.lock.Lock()
	stream, done := r.stream, r.done
	r.stream, r.closed = nil, true
	r.lock.Unlock()
	if stream == nil {
		return nil
	}
	err := stream.Close()
	<-done
	return err
}
