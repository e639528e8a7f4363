package sh

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

// ParseHexBytes parses hex bytes, separated or not, e.g. "20 40" or "2040".
func ParseHexBytes(args []string) ([]byte, error) {
	var data []byte
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.ToLower(arg), "0x")
		arg = strings.NewReplacer(",", "", ":", "").Replace(arg)
		b, err := hex.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", arg, err)
		}
		data = append(data, b...)
	}
	return data, nil
}

// FormatHex formats bytes as space separated hex.
func FormatHex(data []byte) string {
	strs := make([]string, len(data))
	for n, b := range data {
		strs[n] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(strs, " ")
}

// ParseChannels parses channel values, at most n of them.
func ParseChannels(args []string, n int) ([]uint16, error) {
	if len(args) > n {
		return nil, fmt.Errorf("at most %d channels", n)
	}
	channels := make([]uint16, len(args))
	for i, arg := range args {
		val, err := strconv.ParseUint(arg, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		channels[i] = uint16(val)
	}
	return channels, nil
}

// EncodeFrame builds a wire frame carrying channels.
func EncodeFrame(p protocol.Protocol, channels []uint16, flags rc.Flags) ([]byte, error) {
	switch p {
	case protocol.ProtocolIBus:
		var ch [protocol.IBusNumChannels]uint16
		if len(channels) > len(ch) {
			return nil, fmt.Errorf("at most %d channels", len(ch))
		}
		copy(ch[:], channels)
		frame := protocol.EncodeIBus(ch)
		return frame[:], nil
	case protocol.ProtocolSBus:
		var msg rc.Message
		if len(channels) > len(msg.Channels) {
			return nil, fmt.Errorf("at most %d channels", len(msg.Channels))
		}
		copy(msg.Channels[:], channels)
		msg.Flags = flags
		frame := protocol.EncodeSBus(&msg)
		return frame[:], nil
	}
	return nil, fmt.Errorf("%w: %v", protocol.ErrUnsupportedProtocol, p)
}

// DecodeFrames feeds data to a new parser and returns the decoded messages.
func DecodeFrames(p protocol.Protocol, data []byte) ([]rc.Message, protocol.Stats, error) {
	parser, err := protocol.New(p, len(data)/protocol.SBusFrameSize+1)
	if err != nil {
		return nil, protocol.Stats{}, err
	}
	var messages []rc.Message
	for _, b := range data {
		if parser.ParseByte(b) {
			var msg rc.Message
			parser.Next(&msg)
			messages = append(messages, msg)
		}
	}
	return messages, parser.Stats(), nil
}
