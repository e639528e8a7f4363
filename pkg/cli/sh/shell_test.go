package sh

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialrx/pkg/env"
	"github.com/robotalks/serialrx/pkg/rx"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
	"github.com/robotalks/serialrx/pkg/source"
)

// exclusivePort refuses a second open while a stream is held, like a
// serial port.
type exclusivePort struct {
	lock  sync.Mutex
	held  bool
	opens int
}

type portStream struct {
	*io.PipeReader
	port *exclusivePort
}

func (s *portStream) Close() error {
	s.port.lock.Lock()
	s.port.held = false
	s.port.lock.Unlock()
	return s.PipeReader.Close()
}

func (p *exclusivePort) open(int) (io.ReadCloser, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.held {
		return nil, errors.New("port busy")
	}
	p.held = true
	p.opens++
	pr, _ := io.Pipe()
	return &portStream{PipeReader: pr, port: p}, nil
}

func (p *exclusivePort) openReceiver() (*rx.Receiver, *source.Reader, error) {
	src := source.NewReader("port", p.open, 0)
	recv := rx.NewReceiver()
	conf := rx.DefaultConfig()
	conf.Source, conf.Protocol = src, protocol.ProtocolIBus
	if err := recv.Begin(conf); err != nil {
		return nil, nil, err
	}
	return recv, src, nil
}

func TestShellReopen(t *testing.T) {
	port := &exclusivePort{}
	s := &Shell{Config: env.NewConfig(), Opener: port.openReceiver}

	require.NoError(t, s.Open())
	first := s.Receiver
	require.NoError(t, s.Open())
	require.NotNil(t, s.Receiver)
	require.True(t, first != s.Receiver)
	require.Equal(t, 2, port.opens)

	s.Close()
	require.Nil(t, s.Receiver)
	require.False(t, port.held)
}
