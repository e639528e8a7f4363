package rx

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

// Stats counts receiver activity.
type Stats struct {
	// Bytes is the number of bytes read from the source.
	Bytes uint32
	// Discarded is the number of bytes dropped after an idle gap
	// because they were not a header byte.
	Discarded uint32
	// IdleResets is the number of parser resets caused by idle gaps.
	IdleResets uint32
	// Frames is the number of valid frames parsed.
	Frames uint32
}

// Receiver polls a ByteSource and decodes RC messages.
type Receiver struct {
	source        ByteSource
	timed         TimedByteSource
	parser        protocol.Parser
	clock         TimeSource
	timeout       time.Duration
	idleThreshold time.Duration

	lastMessage      time.Time
	lastByte         time.Time
	expectFrameStart bool

	stats Stats
}

// NewReceiver creates a Receiver. Begin must succeed before it decodes
// anything.
func NewReceiver() *Receiver {
	return &Receiver{clock: SystemClock}
}

// Begin validates the config, creates the parser and opens the source.
// On error the Receiver is left unchanged.
func (r *Receiver) Begin(conf Config) error {
	if conf.Source == nil {
		return ErrNoSource
	}
	parser, err := protocol.New(conf.Protocol, conf.QueueSize)
	if err != nil {
		return err
	}
	baudRate := conf.BaudRate
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if err = conf.Source.Begin(baudRate); err != nil {
		return fmt.Errorf("begin %v source at %d: %w", conf.Protocol, baudRate, err)
	}

	r.source, r.parser = conf.Source, parser
	r.timed, _ = conf.Source.(TimedByteSource)
	r.clock = conf.Clock
	if r.clock == nil {
		r.clock = SystemClock
	}
	r.timeout = conf.Timeout
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	r.idleThreshold = conf.IdleThreshold
	now := r.clock.Time()
	r.lastMessage, r.lastByte = now, now
	r.expectFrameStart = false
	r.stats = Stats{}
	glog.V(2).Infof("receiver: %v at %d baud, idle threshold %v", conf.Protocol, baudRate, r.idleThreshold)
	return nil
}

// Protocol returns the active protocol, zero before Begin.
func (r *Receiver) Protocol() protocol.Protocol {
	if r.parser == nil {
		return 0
	}
	return r.parser.Protocol()
}

// Update feeds all buffered bytes to the parser. It never blocks.
func (r *Receiver) Update() {
	if r.parser == nil {
		return
	}
	for r.source.Buffered() > 0 {
		b, at, err := r.readByte()
		if err != nil {
			glog.V(3).Infof("receiver: read: %v", err)
			return
		}
		r.stats.Bytes++
		now := r.clock.Time()
		if r.idleThreshold > 0 {
			if !r.expectFrameStart && at.Sub(r.lastByte) > r.idleThreshold {
				r.parser.Reset()
				r.expectFrameStart = true
				r.stats.IdleResets++
			}
		}
		if at.After(r.lastByte) {
			r.lastByte = at
		}
		if r.expectFrameStart {
			r.expectFrameStart = false
			if b != r.parser.HeaderByte() {
				r.stats.Discarded++
				continue
			}
		}
		if r.parser.ParseByte(b) {
			r.lastMessage = now
			r.stats.Frames++
		}
	}
}

func (r *Receiver) readByte() (byte, time.Time, error) {
	if r.timed != nil {
		return r.timed.ReadByteAt()
	}
	b, err := r.source.ReadByte()
	return b, r.clock.Time(), err
}

// Available checks if a decoded message is queued.
func (r *Receiver) Available() bool {
	return r.parser != nil && r.parser.Available()
}

// Next dequeues the oldest decoded message into msg.
func (r *Receiver) Next(msg *rc.Message) bool {
	return r.parser != nil && r.parser.Next(msg)
}

// TimeSinceLastMessage returns the time elapsed since the last valid frame,
// or since Begin when none was received.
func (r *Receiver) TimeSinceLastMessage() time.Duration {
	if r.parser == nil {
		return 0
	}
	return r.clock.Time().Sub(r.lastMessage)
}

// Timeout checks if no valid frame was received within threshold.
func (r *Receiver) Timeout(threshold time.Duration) bool {
	return r.TimeSinceLastMessage() > threshold
}

// Failsafe is Timeout using the configured timeout. It is true before Begin.
func (r *Receiver) Failsafe() bool {
	return r.parser == nil || r.Timeout(r.timeout)
}

// Stats returns the receiver counters.
func (r *Receiver) Stats() Stats {
	return r.stats
}

// ParserStats returns the parser counters.
func (r *Receiver) ParserStats() protocol.Stats {
	if r.parser == nil {
		return protocol.Stats{}
	}
	return r.parser.Stats()
}
