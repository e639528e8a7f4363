package protocol

import (
	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/rc"
)

// IBus frame layout.
const (
	IBusHeader0     byte = 0x20
	IBusHeader1     byte = 0x40
	IBusFrameSize        = 32
	IBusNumChannels      = 14

	ibusChecksumInit uint16 = 0xffff
	ibusPayloadEnd          = 30 // bytes counted before the checksum
)

type ibusState int

const (
	ibusWaitingForHeader0 ibusState = iota // waiting for 0x20
	ibusHasHeader0                         // waiting for 0x40
	ibusHasHeader1                         // accumulating channel bytes
	ibusHasFrame                           // waiting for checksum low byte
	ibusHasCheckSum0                       // waiting for checksum high byte
)

// IBusParser decodes FlySky IBus frames:
//
//	0x20 0x40 | 14 x uint16 LE channels | uint16 LE checksum
//
// The checksum is 0xffff minus every byte before it.
//
// The header pair may occur inside channel data, so a parser joining a stream
// mid-frame can lock onto a false header. The checksum catches that case at
// the cost of one dropped frame.
type IBusParser struct {
	queue
	state    ibusState
	count    int
	checksum uint16
	received uint16
}

// NewIBusParser creates an IBusParser keeping up to queueSize messages.
func NewIBusParser(queueSize int) *IBusParser {
	p := &IBusParser{}
	p.init(queueSize)
	p.Reset()
	return p
}

// Protocol implements Parser.
func (p *IBusParser) Protocol() Protocol {
	return ProtocolIBus
}

// HeaderByte implements Parser.
func (p *IBusParser) HeaderByte() byte {
	return IBusHeader0
}

// Reset implements Parser.
func (p *IBusParser) Reset() {
	p.state = ibusWaitingForHeader0
	p.count = 0
	p.checksum = ibusChecksumInit
	p.received = 0
	p.msg.Reset()
}

// ParseByte implements Parser.
func (p *IBusParser) ParseByte(b byte) bool {
	switch p.state {
	case ibusWaitingForHeader0:
		if b == IBusHeader0 {
			p.checksum -= uint16(b)
			p.count = 1
			p.state = ibusHasHeader0
		}
	case ibusHasHeader0:
		if b != IBusHeader1 {
			p.Reset()
			return false
		}
		p.checksum -= uint16(b)
		p.count = 2
		p.state = ibusHasHeader1
	case ibusHasHeader1:
		p.count++
		p.checksum -= uint16(b)
		ch := (p.count - 3) / 2
		if p.count%2 == 1 {
			p.msg.Channels[ch] = uint16(b)
		} else {
			p.msg.Channels[ch] |= uint16(b) << 8
		}
		if p.count == ibusPayloadEnd {
			p.state = ibusHasFrame
		}
	case ibusHasFrame:
		p.received = uint16(b)
		p.state = ibusHasCheckSum0
	case ibusHasCheckSum0:
		p.received |= uint16(b) << 8
		ok := p.received == p.checksum
		if ok {
			p.notify()
		} else {
			p.reject()
			glog.V(4).Infof("ibus: checksum mismatch %04x != %04x", p.received, p.checksum)
		}
		p.Reset()
		return ok
	}
	return false
}

// EncodeIBus builds a valid IBus frame carrying channels.
func EncodeIBus(channels [IBusNumChannels]uint16) [IBusFrameSize]byte {
	var frame [IBusFrameSize]byte
	frame[0], frame[1] = IBusHeader0, IBusHeader1
	for n, val := range channels {
		frame[2+n*2] = byte(val)
		frame[3+n*2] = byte(val >> 8)
	}
	checksum := ibusChecksumInit
	for _, b := range frame[:ibusPayloadEnd] {
		checksum -= uint16(b)
	}
	frame[ibusPayloadEnd] = byte(checksum)
	frame[ibusPayloadEnd+1] = byte(checksum >> 8)
	return frame
}

// IBusChannels extracts the IBus channels from a decoded message.
func IBusChannels(msg *rc.Message) (channels [IBusNumChannels]uint16) {
	copy(channels[:], msg.Channels[:IBusNumChannels])
	return
}
