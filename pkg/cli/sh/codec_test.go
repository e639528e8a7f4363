package sh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

func TestParseHexBytes(t *testing.T) {
	data, err := ParseHexBytes([]string{"20", "40", "0xDB05", "dc:05"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x20, 0x40, 0xdb, 0x05, 0xdc, 0x05}, data)
	require.Equal(t, "20 40 DB 05 DC 05", FormatHex(data))

	_, err = ParseHexBytes([]string{"2"})
	require.Error(t, err)
	_, err = ParseHexBytes([]string{"zz"})
	require.Error(t, err)
}

func TestParseChannels(t *testing.T) {
	channels, err := ParseChannels([]string{"1500", "0x7ff", "0"}, 4)
	require.NoError(t, err)
	require.Equal(t, []uint16{1500, 2047, 0}, channels)

	_, err = ParseChannels([]string{"1", "2"}, 1)
	require.Error(t, err)
	_, err = ParseChannels([]string{"65536"}, 1)
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	channels := []uint16{1500, 1000, 2000, 1234}
	for _, p := range []protocol.Protocol{protocol.ProtocolIBus, protocol.ProtocolSBus} {
		t.Run(p.String(), func(t *testing.T) {
			frame, err := EncodeFrame(p, channels, 0)
			require.NoError(t, err)
			data := append([]byte{0x00, 0x55}, frame...)
			data = append(data, frame...)
			messages, stats, err := DecodeFrames(p, data)
			require.NoError(t, err)
			require.Len(t, messages, 2)
			require.Equal(t, uint32(2), stats.Frames)
			for _, msg := range messages {
				require.Equal(t, channels, msg.Channels[:len(channels)])
			}
		})
	}

	_, err := EncodeFrame(protocol.ProtocolIBus, make([]uint16, protocol.IBusNumChannels+1), 0)
	require.Error(t, err)
	_, err = EncodeFrame(protocol.Protocol(0), nil, 0)
	require.True(t, errors.Is(err, protocol.ErrUnsupportedProtocol))
	_, _, err = DecodeFrames(protocol.Protocol(0), nil)
	require.True(t, errors.Is(err, protocol.ErrUnsupportedProtocol))
}

func TestFormatMessage(t *testing.T) {
	msg := rc.Message{Flags: rc.FlagFailsafe}
	msg.Channels[0], msg.Channels[1] = 1500, 1000
	require.Equal(t, "[1500 1000 0] flags=0x02", FormatMessage(&msg, 3))
	msg.Flags = 0
	require.Equal(t, "[1500 1000]", FormatMessage(&msg, 2))
}
