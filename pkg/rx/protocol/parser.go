// Package protocol implements byte-wise frame synchronization for RC receiver
// serial protocols.
package protocol

// Each parser consumes one byte at a time and never looks back: a byte which
// breaks synchronization (wrong header, bad checksum, bad footer) resets the
// state machine, and the partial frame is dropped. Completed frames are copied
// into a fixed-size queue which keeps the most recent ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/ringbuf"
)

// Parser is a frame synchronizing state machine.
type Parser interface {
	// Protocol returns the protocol this parser decodes.
	Protocol() Protocol
	// HeaderByte returns the first byte of every frame.
	HeaderByte() byte
	// ParseByte consumes one byte. It returns true exactly when
	// the byte completed a valid frame and the frame is queued.
	ParseByte(b byte) bool
	// Reset drops any partial frame and waits for a header.
	Reset()
	// Available checks if a completed message is queued.
	Available() bool
	// Next dequeues the oldest completed message into msg.
	Next(msg *rc.Message) bool
	// Stats returns the frame counters.
	Stats() Stats
}

// Protocol selects a receiver protocol.
type Protocol int

// Supported protocols.
const (
	ProtocolIBus Protocol = iota + 1
	ProtocolSBus
)

// DefaultQueueSize is the number of completed messages kept by a parser
// when no size is specified.
const DefaultQueueSize = 8

var (
	// ErrUnsupportedProtocol indicates the protocol is unknown.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

var protocolNames = map[Protocol]string{
	ProtocolIBus: "ibus",
	ProtocolSBus: "sbus",
}

// String implements fmt.Stringer.
func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

// IsValid checks if the protocol is supported.
func (p Protocol) IsValid() bool {
	_, ok := protocolNames[p]
	return ok
}

// ParseProtocol parses a protocol name, case-insensitively.
func ParseProtocol(name string) (Protocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range protocolNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, name)
}

// New creates a parser for the protocol with a queue of queueSize messages.
func New(p Protocol, queueSize int) (Parser, error) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	switch p {
	case ProtocolIBus:
		return NewIBusParser(queueSize), nil
	case ProtocolSBus:
		return NewSBusParser(queueSize), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedProtocol, p)
}

// Stats counts parser results.
type Stats struct {
	// Frames is the number of frames validated and queued.
	Frames uint32
	// Rejected is the number of complete frames failing validation.
	Rejected uint32
	// Overwritten is the number of queued messages dropped because
	// the queue was full.
	Overwritten uint32
}

// queue holds the working message and completed messages.
type queue struct {
	msg   rc.Message
	fifo  *ringbuf.Buffer[rc.Message]
	stats Stats
}

func (q *queue) init(size int) {
	q.fifo = ringbuf.New[rc.Message](size)
}

// notify queues a copy of the working message.
func (q *queue) notify() {
	if q.fifo.Put(q.msg) {
		q.stats.Overwritten++
	}
	q.stats.Frames++
}

func (q *queue) reject() {
	q.stats.Rejected++
}

// Available implements Parser.
func (q *queue) Available() bool {
	return !q.fifo.IsEmpty()
}

// Next implements Parser.
func (q *queue) Next(msg *rc.Message) bool {
	m, ok := q.fifo.Get()
	if ok {
		*msg = m
	}
	return ok
}

// Stats implements Parser.
func (q *queue) Stats() Stats {
	return q.stats
}
