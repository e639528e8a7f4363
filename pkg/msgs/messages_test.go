package msgs

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

func TestChannelFrame(t *testing.T) {
	var in rc.Message
	for n := range in.Channels {
		in.Channels[n] = uint16(1000 + n)
	}
	in.Flags = rc.FlagFailsafe
	at := time.Unix(1500, 250)

	f := NewChannelFrame(protocol.ProtocolSBus, &in, at, 7)
	require.Len(t, f.Channels, rc.NumChannels)
	require.Equal(t, "sbus", f.Protocol)
	require.True(t, at.Equal(f.Time()))

	typed, err := TypedFrom(f)
	require.NoError(t, err)
	require.Equal(t, ChannelFrameTypeID, typed.TypeId)
	data, err := typed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	frame, ok := decoded.(*ChannelFrame)
	require.True(t, ok)
	require.Equal(t, uint64(7), frame.Seq)
	out, err := frame.Message()
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestChannelFrameIBus(t *testing.T) {
	msg := rc.Message{}
	msg.Channels[0] = 1500
	f := NewChannelFrame(protocol.ProtocolIBus, &msg, time.Now(), 1)
	require.Len(t, f.Channels, protocol.IBusNumChannels)
	require.Equal(t, uint32(1500), f.Channels[0])
}

func TestChannelFrameInvalid(t *testing.T) {
	_, err := (&ChannelFrame{Channels: make([]uint32, rc.NumChannels+1)}).Message()
	require.Error(t, err)
	_, err = (&ChannelFrame{Channels: []uint32{0x10000}}).Message()
	require.Error(t, err)
}

func TestLinkState(t *testing.T) {
	state := &LinkState{Connected: true, Protocol: "ibus", SinceLastFrame: 12, Frames: 3}
	data, err := proto.Marshal(state)
	require.NoError(t, err)
	var out LinkState
	require.NoError(t, proto.Unmarshal(data, &out))
	require.True(t, proto.Equal(state, &out))
}

func TestUnknownType(t *testing.T) {
	typed := &Typed{TypeId: TypeIDKindEvent | 0x7fff}
	_, err := typed.Decode()
	require.Error(t, err)
	unknown, ok := err.(*ErrUnknownType)
	require.True(t, ok)
	require.Equal(t, typed.TypeId, unknown.TypeID)
}
