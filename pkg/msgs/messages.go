package msgs

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

// Type IDs.
const (
	ChannelFrameTypeID uint32 = TypeIDKindEvent | 0x00010001
	LinkStateTypeID    uint32 = TypeIDKindEvent | 0x00010002
)

// ChannelFrame is one decoded RC message.
type ChannelFrame struct {
	Channels  []uint32 `protobuf:"varint,1,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	Flags     uint32   `protobuf:"varint,2,opt,name=flags,proto3" json:"flags,omitempty"`
	Protocol  string   `protobuf:"bytes,3,opt,name=protocol,proto3" json:"protocol,omitempty"`
	Timestamp int64    `protobuf:"varint,4,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Seq       uint64   `protobuf:"varint,5,opt,name=seq,proto3" json:"seq,omitempty"`
}

// Reset implements proto.Message.
func (m *ChannelFrame) Reset() { *m = ChannelFrame{} }

// String implements proto.Message.
func (m *ChannelFrame) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*ChannelFrame) ProtoMessage() {}

// TypeID implements SerializableMessage.
func (m *ChannelFrame) TypeID() uint32 { return ChannelFrameTypeID }

// NewChannelFrame creates a ChannelFrame from a decoded message.
func NewChannelFrame(p protocol.Protocol, msg *rc.Message, at time.Time, seq uint64) *ChannelFrame {
	n := rc.NumChannels
	if p == protocol.ProtocolIBus {
		n = protocol.IBusNumChannels
	}
	f := &ChannelFrame{
		Channels:  make([]uint32, n),
		Flags:     uint32(msg.Flags),
		Protocol:  p.String(),
		Timestamp: at.UnixNano(),
		Seq:       seq,
	}
	for i := range f.Channels {
		f.Channels[i] = uint32(msg.Channels[i])
	}
	return f
}

// Message converts back to an rc.Message.
func (m *ChannelFrame) Message() (msg rc.Message, err error) {
	if len(m.Channels) > rc.NumChannels {
		return msg, fmt.Errorf("too many channels: %d", len(m.Channels))
	}
	for i, val := range m.Channels {
		if val > 0xffff {
			return msg, fmt.Errorf("channel %d out of range: %d", i, val)
		}
		msg.Channels[i] = uint16(val)
	}
	msg.Flags = rc.Flags(m.Flags)
	return
}

// Time returns the decoding time.
func (m *ChannelFrame) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// LinkState reports whether valid frames are being received.
type LinkState struct {
	Connected bool   `protobuf:"varint,1,opt,name=connected,proto3" json:"connected,omitempty"`
	Protocol  string `protobuf:"bytes,2,opt,name=protocol,proto3" json:"protocol,omitempty"`
	Timestamp int64  `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	// SinceLastFrame is in milliseconds.
	SinceLastFrame int64  `protobuf:"varint,4,opt,name=since_last_frame,json=sinceLastFrame,proto3" json:"since_last_frame,omitempty"`
	Frames         uint32 `protobuf:"varint,5,opt,name=frames,proto3" json:"frames,omitempty"`
	Rejected       uint32 `protobuf:"varint,6,opt,name=rejected,proto3" json:"rejected,omitempty"`
}

// Reset implements proto.Message.
func (m *LinkState) Reset() { *m = LinkState{} }

// String implements proto.Message.
func (m *LinkState) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*LinkState) ProtoMessage() {}

// TypeID implements SerializableMessage.
func (m *LinkState) TypeID() uint32 { return LinkStateTypeID }
