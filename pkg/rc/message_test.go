package rc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageChannel(t *testing.T) {
	var msg Message
	msg.Channels[0], msg.Channels[NumChannels-1] = 1500, 2047
	val, ok := msg.Channel(0)
	require.True(t, ok)
	require.Equal(t, uint16(1500), val)
	val, ok = msg.Channel(NumChannels - 1)
	require.True(t, ok)
	require.Equal(t, uint16(2047), val)
	_, ok = msg.Channel(-1)
	require.False(t, ok)
	_, ok = msg.Channel(NumChannels)
	require.False(t, ok)
}

func TestMessageReset(t *testing.T) {
	msg := Message{Flags: FlagFailsafe}
	msg.Channels[3] = 1000
	msg.Reset()
	require.Equal(t, Message{}, msg)
}

func TestFlags(t *testing.T) {
	f := FlagFrameLost | FlagFailsafe
	require.True(t, f.Has(FlagFrameLost))
	require.True(t, f.Has(FlagFailsafe))
	require.True(t, f.Has(FlagFrameLost|FlagFailsafe))
	require.False(t, f.Has(FlagDigital17))
	require.False(t, f.Has(FlagFailsafe|FlagDigital18))
}

func TestMessageString(t *testing.T) {
	var msg Message
	msg.Channels[0] = 1
	require.Equal(t, "[1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0]", msg.String())
	msg.Flags = FlagFailsafe
	require.Equal(t, "[1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0] flags=0x02", msg.String())
}
