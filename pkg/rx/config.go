package rx

import (
	"io"
	"time"

	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

// Defaults used by DefaultConfig.
const (
	DefaultBaudRate = 115200
	DefaultTimeout  = time.Second
)

// ByteSource is a buffered serial port, or anything pretending to be one.
type ByteSource interface {
	io.ByteReader
	// Begin opens the source at the baud rate.
	Begin(baudRate int) error
	// Buffered returns the number of bytes readable without blocking.
	Buffered() int
}

// TimedByteSource is a ByteSource which remembers when each byte arrived.
// Idle gaps are measured on arrival times when the source provides them,
// otherwise on the time Update reads the byte.
type TimedByteSource interface {
	ByteSource
	ReadByteAt() (byte, time.Time, error)
}

// TimeSource provides the current time.
type TimeSource interface {
	Time() time.Time
}

// TimeFunc is the func form of TimeSource.
type TimeFunc func() time.Time

// Time implements TimeSource.
func (f TimeFunc) Time() time.Time {
	return f()
}

// SystemClock is the wall clock.
var SystemClock TimeSource = TimeFunc(time.Now)

// Config configures a Receiver.
type Config struct {
	Source   ByteSource
	Protocol protocol.Protocol
	BaudRate int
	// Timeout is the link loss threshold used by Failsafe.
	Timeout time.Duration
	// IdleThreshold is the silence between bytes treated as a frame
	// boundary. Zero disables idle detection.
	IdleThreshold time.Duration
	// QueueSize is the number of completed messages kept.
	QueueSize int
	// Clock defaults to SystemClock.
	Clock TimeSource
}

// DefaultConfig returns a Config without source and protocol.
func DefaultConfig() Config {
	return Config{
		BaudRate:  DefaultBaudRate,
		Timeout:   DefaultTimeout,
		QueueSize: protocol.DefaultQueueSize,
	}
}
