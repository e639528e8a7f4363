package sh

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/serialrx/pkg/bridge/mqtt"
	"github.com/robotalks/serialrx/pkg/bridge/websocket"
	"github.com/robotalks/serialrx/pkg/msgs"
	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
	"github.com/robotalks/serialrx/pkg/source"
)

const (
	defaultWatchDuration = 5 * time.Second
	watchInterval        = 5 * time.Millisecond
)

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func parseDuration(args []string, n int) (time.Duration, error) {
	if len(args) > n {
		return time.ParseDuration(args[n])
	}
	return defaultWatchDuration, nil
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := source.SerialPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// OpenCmd opens the receiver.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PROTOCOL [PORT|FILE]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Protocol = c.Args[0]
			}
			if len(c.Args) > 1 {
				s.Config.Port = c.Args[1]
				s.Config.Replay = isRegularFile(c.Args[1])
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the receiver.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// StatusCmd shows receiver counters and link state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			s := ShellFrom(c)
			recv := s.Receiver
			stats, parser := recv.Stats(), recv.ParserStats()
			c.Printf("protocol:  %s\n", recv.Protocol())
			c.Printf("source:    %s, %d buffered, %d dropped\n", s.Source.Name, s.Source.Buffered(), s.Source.Dropped())
			if err := s.Source.Err(); err != nil {
				c.Printf("stopped:   %v\n", err)
			}
			c.Printf("bytes:     %d, %d discarded, %d idle resets\n", stats.Bytes, stats.Discarded, stats.IdleResets)
			c.Printf("frames:    %d, %d rejected, %d overwritten\n", parser.Frames, parser.Rejected, parser.Overwritten)
			c.Printf("last:      %v ago, failsafe=%v\n", recv.TimeSinceLastMessage(), recv.Failsafe())
		}),
	}

	// WatchCmd prints decoded messages for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[DURATION]",
		Func: MustBeOpen(func(c *ishell.Context) {
			s := ShellFrom(c)
			dur, err := parseDuration(c.Args, 0)
			if err != nil {
				c.Err(err)
				return
			}
			timeout := time.After(dur)
			ticker := time.NewTicker(watchInterval)
			defer ticker.Stop()
			failsafe := s.Receiver.Failsafe()
			for {
				select {
				case <-timeout:
					return
				case <-ticker.C:
				}
				s.Receiver.Update()
				var msg rc.Message
				for s.Receiver.Next(&msg) {
					s.PrintMessage(c, &msg)
				}
				if fs := s.Receiver.Failsafe(); fs != failsafe {
					failsafe = fs
					c.Printf("failsafe=%v\n", fs)
				}
			}
		}),
	}

	// EncodeCmd prints a frame carrying the channels.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "PROTOCOL CHANNEL...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("protocol required"))
				return
			}
			p, err := protocol.ParseProtocol(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			channels, err := ParseChannels(c.Args[1:], rc.NumChannels)
			if err != nil {
				c.Err(err)
				return
			}
			frame, err := EncodeFrame(p, channels, 0)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(FormatHex(frame))
		},
	}

	// DecodeCmd decodes hex bytes.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec", "feed"},
		Help:    "PROTOCOL HEX...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("protocol required"))
				return
			}
			p, err := protocol.ParseProtocol(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := ParseHexBytes(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			messages, stats, err := DecodeFrames(p, data)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			for n := range messages {
				s.PrintFrame(c, msgs.NewChannelFrame(p, &messages[n], time.Now(), uint64(n+1)))
			}
			c.Printf("%d bytes, %d frames, %d rejected\n", len(data), stats.Frames, stats.Rejected)
		},
	}

	// RemoteCmd prints frames published by a bridge.
	RemoteCmd = ishell.Cmd{
		Name:    "remote",
		Aliases: []string{"r"},
		Help:    "mqtt://BROKER/PREFIX/ [ID] [DURATION] | ws://HOST:PORT/rx [DURATION]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("URL required"))
				return
			}
			u, err := url.Parse(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			switch u.Scheme {
			case "ws", "wss":
				err = watchWebsocket(c, c.Args[0], c.Args[1:])
			default:
				err = watchMQTT(c, c.Args[0], c.Args[1:])
			}
			if err != nil {
				c.Err(err)
			}
		},
	}
)

func watchWebsocket(c *ishell.Context, wsURL string, args []string) error {
	dur, err := parseDuration(args, 0)
	if err != nil {
		return err
	}
	conn, err := websocket.Dial(wsURL)
	if err != nil {
		return err
	}
	msgCh := make(chan msgs.SerializableMessage, 16)
	go func() {
		defer close(msgCh)
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgCh <- msg
		}
	}()
	defer func() {
		conn.Close()
		for range msgCh {
		}
	}()
	return printRemote(c, msgCh, dur)
}

func watchMQTT(c *ishell.Context, brokerURL string, args []string) error {
	id := "+"
	if len(args) > 0 {
		id, args = args[0], args[1:]
	}
	dur, err := parseDuration(args, 0)
	if err != nil {
		return err
	}
	q, err := mqtt.NewQueueFromURL(brokerURL)
	if err != nil {
		return err
	}
	token := q.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return err
	}
	defer q.Close()
	msgCh := make(chan msgs.SerializableMessage, 16)
	forward := func(msg msgs.SerializableMessage) {
		select {
		case msgCh <- msg:
		default:
		}
	}
	frames := mqtt.WatchFrames(q, id, func(topic string, f *msgs.ChannelFrame) { forward(f) })
	defer frames.Close()
	states := mqtt.WatchLinkState(q, id, func(topic string, state *msgs.LinkState) { forward(state) })
	defer states.Close()
	return printRemote(c, msgCh, dur)
}

func printRemote(c *ishell.Context, msgCh <-chan msgs.SerializableMessage, dur time.Duration) error {
	s := ShellFrom(c)
	timeout := time.After(dur)
	for {
		select {
		case <-timeout:
			return nil
		case msg, ok := <-msgCh:
			if !ok {
				return fmt.Errorf("connection closed")
			}
			switch m := msg.(type) {
			case *msgs.ChannelFrame:
				s.PrintFrame(c, m)
			case *msgs.LinkState:
				c.Printf("link %s connected=%v frames=%d rejected=%d\n", m.Protocol, m.Connected, m.Frames, m.Rejected)
			}
		}
	}
}
