// Package rc defines the decoded radio-control message shared by all receiver protocols.
package rc

import (
	"bytes"
	"fmt"
)

// NumChannels is the number of channels carried by a Message.
// It covers the widest supported protocol (SBUS, 16 channels).
const NumChannels = 16

// Flags is a bitmask of protocol-specific status bits.
type Flags uint8

// Flag bits.
const (
	// FlagFrameLost indicates the receiver reported a lost frame.
	FlagFrameLost Flags = 1 << 0
	// FlagFailsafe indicates the receiver itself is in failsafe.
	FlagFailsafe Flags = 1 << 1
	// FlagDigital17 carries SBUS digital channel 17.
	FlagDigital17 Flags = 1 << 2
	// FlagDigital18 carries SBUS digital channel 18.
	FlagDigital18 Flags = 1 << 3
)

// Has checks if all bits in f are set.
func (s Flags) Has(f Flags) bool {
	return s&f == f
}

// Message is one decoded frame.
type Message struct {
	Channels [NumChannels]uint16
	Flags    Flags
}

// Reset zeroes the message.
func (m *Message) Reset() {
	*m = Message{}
}

// Channel returns the value of channel i (0-based).
func (m *Message) Channel(i int) (uint16, bool) {
	if i < 0 || i >= NumChannels {
		return 0, false
	}
	return m.Channels[i], true
}

// String implements fmt.Stringer.
func (m Message) String() string {
	var w bytes.Buffer
	w.WriteByte('[')
	for n, val := range m.Channels {
		if n > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(&w, "%d", val)
	}
	w.WriteByte(']')
	if m.Flags != 0 {
		fmt.Fprintf(&w, " flags=0x%02x", byte(m.Flags))
	}
	return w.String()
}
