package source

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

// SerialMode returns the UART framing used by the protocol. Baud rate is
// set by Begin.
func SerialMode(p protocol.Protocol) serial.Mode {
	switch p {
	case protocol.ProtocolSBus:
		// 100000 baud 8E2, the signal inversion is done in hardware.
		return serial.Mode{DataBits: 8, Parity: serial.EvenParity, StopBits: serial.TwoStopBits}
	default:
		return serial.Mode{DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	}
}

// OpenSerial creates a Reader on a serial port.
func OpenSerial(path string, mode serial.Mode) *Reader {
	return NewReader(path, func(baudRate int) (io.ReadCloser, error) {
		m := mode
		m.BaudRate = baudRate
		port, err := serial.Open(path, &m)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return port, nil
	}, DefaultBufferSize)
}

// SerialPorts lists the serial ports of the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
