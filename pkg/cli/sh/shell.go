// Package sh provides the interactive receiver shell.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/env"
	"github.com/robotalks/serialrx/pkg/msgs"
	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx"
	"github.com/robotalks/serialrx/pkg/source"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Config   *env.Config
	Receiver *rx.Receiver
	Source   *source.Reader
	// Opener opens a receiver, Config.OpenReceiver by default.
	Opener func() (*rx.Receiver, *source.Reader, error)

	seq uint64
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
		&StatusCmd,
		&WatchCmd,
		&EncodeCmd,
		&DecodeCmd,
		&RemoteCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Opener: conf.OpenReceiver,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened receiver.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Receiver == nil {
			c.Err(fmt.Errorf("receiver not open"))
			return
		}
		fn(c)
	}
}

// Open closes the current receiver and opens a new one. Serial ports are
// exclusive, so the old port is released first.
func (s *Shell) Open() error {
	s.Close()
	recv, src, err := s.Opener()
	if err != nil {
		return err
	}
	s.Receiver, s.Source, s.seq = recv, src, 0
	s.setPrompt(fmt.Sprintf("[%s %s] > ", recv.Protocol(), s.Config.Port))
	return nil
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Close closes the receiver.
func (s *Shell) Close() {
	if s.Source != nil {
		if err := s.Source.Close(); err != nil {
			glog.Warningf("close %s: %v", s.Source.Name, err)
		}
	}
	s.Receiver, s.Source = nil, nil
	s.setPrompt(closedPrompt)
}

// PrintFrame prints a frame as text or JSON.
func (s *Shell) PrintFrame(c *ishell.Context, f *msgs.ChannelFrame) {
	if s.OutputJSON {
		out, err := json.Marshal(f)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	msg, err := f.Message()
	if err != nil {
		c.Err(err)
		return
	}
	c.Printf("#%d %s %s\n", f.Seq, f.Protocol, FormatMessage(&msg, len(f.Channels)))
}

// PrintMessage prints a message decoded by the local receiver.
func (s *Shell) PrintMessage(c *ishell.Context, msg *rc.Message) {
	s.seq++
	s.PrintFrame(c, msgs.NewChannelFrame(s.Receiver.Protocol(), msg, time.Now(), s.seq))
}

// FormatMessage formats the first n channels and flags.
func FormatMessage(msg *rc.Message, n int) string {
	if n > len(msg.Channels) {
		n = len(msg.Channels)
	}
	str := fmt.Sprintf("%v", msg.Channels[:n])
	if msg.Flags != 0 {
		str += fmt.Sprintf(" flags=0x%02x", uint8(msg.Flags))
	}
	return str
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
