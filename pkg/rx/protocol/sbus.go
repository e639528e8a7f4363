package protocol

import (
	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/rc"
)

// SBUS frame layout.
const (
	SBusHeader      byte = 0x0f
	SBusFooter      byte = 0x00
	SBusFrameSize        = 25
	SBusPayloadSize      = 22
	SBusNumChannels      = 16
	SBusChannelMax       = 0x7ff

	sbusFlagDigital17 byte = 1 << 0
	sbusFlagDigital18 byte = 1 << 1
	sbusFlagFrameLost byte = 1 << 2
	sbusFlagFailsafe  byte = 1 << 3
)

type sbusState int

const (
	sbusWaitingForHeader   sbusState = iota // waiting for 0x0f
	sbusAccumulateChannels                  // collecting 22 packed bytes
	sbusReadFlags                           // waiting for flags byte
	sbusValidateFooter                      // waiting for 0x00
)

// SBusParser decodes Futaba/FrSky SBUS frames:
//
//	0x0f | 22 bytes of 16 x 11-bit channels, LSB first | flags | 0x00
//
// SBUS has no checksum, the header/footer pair is the only integrity check.
type SBusParser struct {
	queue
	state sbusState
	count int
	raw   [SBusPayloadSize]byte
	flags byte
}

// NewSBusParser creates an SBusParser keeping up to queueSize messages.
func NewSBusParser(queueSize int) *SBusParser {
	p := &SBusParser{}
	p.init(queueSize)
	p.Reset()
	return p
}

// Protocol implements Parser.
func (p *SBusParser) Protocol() Protocol {
	return ProtocolSBus
}

// HeaderByte implements Parser.
func (p *SBusParser) HeaderByte() byte {
	return SBusHeader
}

// Reset implements Parser.
func (p *SBusParser) Reset() {
	p.state = sbusWaitingForHeader
	p.count = 0
	p.raw = [SBusPayloadSize]byte{}
	p.flags = 0
	p.msg.Reset()
}

// ParseByte implements Parser.
func (p *SBusParser) ParseByte(b byte) bool {
	switch p.state {
	case sbusWaitingForHeader:
		if b == SBusHeader {
			p.count = 0
			p.state = sbusAccumulateChannels
		}
	case sbusAccumulateChannels:
		p.raw[p.count] = b
		if p.count++; p.count == SBusPayloadSize {
			p.state = sbusReadFlags
		}
	case sbusReadFlags:
		p.flags = b
		p.state = sbusValidateFooter
	case sbusValidateFooter:
		ok := b == SBusFooter
		if ok {
			unpackSBus(&p.raw, &p.msg.Channels)
			p.msg.Flags = sbusFlags(p.flags)
			p.notify()
		} else {
			p.reject()
			glog.V(4).Infof("sbus: bad footer %02x", b)
		}
		p.Reset()
		return ok
	}
	return false
}

func sbusFlags(b byte) (f rc.Flags) {
	if b&sbusFlagFrameLost != 0 {
		f |= rc.FlagFrameLost
	}
	if b&sbusFlagFailsafe != 0 {
		f |= rc.FlagFailsafe
	}
	if b&sbusFlagDigital17 != 0 {
		f |= rc.FlagDigital17
	}
	if b&sbusFlagDigital18 != 0 {
		f |= rc.FlagDigital18
	}
	return
}

func unpackSBus(raw *[SBusPayloadSize]byte, ch *[rc.NumChannels]uint16) {
	b := func(i int) uint16 { return uint16(raw[i]) }
	ch[0] = (b(0) | b(1)<<8) & SBusChannelMax
	ch[1] = (b(1)>>3 | b(2)<<5) & SBusChannelMax
	ch[2] = (b(2)>>6 | b(3)<<2 | b(4)<<10) & SBusChannelMax
	ch[3] = (b(4)>>1 | b(5)<<7) & SBusChannelMax
	ch[4] = (b(5)>>4 | b(6)<<4) & SBusChannelMax
	ch[5] = (b(6)>>7 | b(7)<<1 | b(8)<<9) & SBusChannelMax
	ch[6] = (b(8)>>2 | b(9)<<6) & SBusChannelMax
	ch[7] = (b(9)>>5 | b(10)<<3) & SBusChannelMax
	ch[8] = (b(11) | b(12)<<8) & SBusChannelMax
	ch[9] = (b(12)>>3 | b(13)<<5) & SBusChannelMax
	ch[10] = (b(13)>>6 | b(14)<<2 | b(15)<<10) & SBusChannelMax
	ch[11] = (b(15)>>1 | b(16)<<7) & SBusChannelMax
	ch[12] = (b(16)>>4 | b(17)<<4) & SBusChannelMax
	ch[13] = (b(17)>>7 | b(18)<<1 | b(19)<<9) & SBusChannelMax
	ch[14] = (b(19)>>2 | b(20)<<6) & SBusChannelMax
	ch[15] = (b(20)>>5 | b(21)<<3) & SBusChannelMax
}

// EncodeSBus builds an SBUS frame from msg. Channel values are truncated to
// 11 bits.
func EncodeSBus(msg *rc.Message) [SBusFrameSize]byte {
	var frame [SBusFrameSize]byte
	frame[0] = SBusHeader
	payload := frame[1 : 1+SBusPayloadSize]
	var bits uint32
	var bitsMerged uint
	var pos int
	for _, val := range msg.Channels[:SBusNumChannels] {
		bits |= uint32(val&SBusChannelMax) << bitsMerged
		bitsMerged += 11
		for bitsMerged >= 8 {
			payload[pos] = byte(bits)
			pos++
			bits >>= 8
			bitsMerged -= 8
		}
	}
	var flags byte
	if msg.Flags.Has(rc.FlagDigital17) {
		flags |= sbusFlagDigital17
	}
	if msg.Flags.Has(rc.FlagDigital18) {
		flags |= sbusFlagDigital18
	}
	if msg.Flags.Has(rc.FlagFrameLost) {
		flags |= sbusFlagFrameLost
	}
	if msg.Flags.Has(rc.FlagFailsafe) {
		flags |= sbusFlagFailsafe
	}
	frame[SBusFrameSize-2] = flags
	frame[SBusFrameSize-1] = SBusFooter
	return frame
}
