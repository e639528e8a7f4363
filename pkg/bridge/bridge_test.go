package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialrx/pkg/msgs"
	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

type testSource struct {
	data []byte
}

func (s *testSource) Begin(int) error { return nil }
func (s *testSource) Buffered() int   { return len(s.data) }

func (s *testSource) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, errors.New("empty")
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Time() time.Time { return c.now }

type recorder struct {
	frames []*msgs.ChannelFrame
	states []*msgs.LinkState
	err    error
}

func (r *recorder) PublishFrame(ctx context.Context, f *msgs.ChannelFrame) error {
	r.frames = append(r.frames, f)
	return r.err
}

func (r *recorder) PublishLinkState(ctx context.Context, state *msgs.LinkState) error {
	r.states = append(r.states, state)
	return r.err
}

func testFrame(ch0 uint16) []byte {
	frame := protocol.EncodeIBus([protocol.IBusNumChannels]uint16{ch0, 1500, 1500, 1500})
	return frame[:]
}

func newTestBridge(t *testing.T) (*Bridge, *testSource, *testClock) {
	src := &testSource{}
	clock := &testClock{now: time.Unix(100, 0)}
	recv := rx.NewReceiver()
	conf := rx.DefaultConfig()
	conf.Source, conf.Protocol, conf.Clock = src, protocol.ProtocolIBus, clock
	require.NoError(t, recv.Begin(conf))
	b := New(recv)
	b.Clock = clock
	return b, src, clock
}

func TestPoll(t *testing.T) {
	b, src, clock := newTestBridge(t)
	rec := &recorder{}
	b.AddSink(rec)
	ctx := context.Background()

	require.NoError(t, b.Poll(ctx))
	require.Empty(t, rec.frames)
	require.Len(t, rec.states, 1)
	require.False(t, rec.states[0].Connected)
	require.Equal(t, "ibus", rec.states[0].Protocol)

	src.data = append(testFrame(1000), testFrame(2000)...)
	require.NoError(t, b.Poll(ctx))
	require.Len(t, rec.frames, 2)
	require.Equal(t, uint64(1), rec.frames[0].Seq)
	require.Equal(t, uint32(1000), rec.frames[0].Channels[0])
	require.Equal(t, uint64(2), rec.frames[1].Seq)
	require.Equal(t, uint32(2000), rec.frames[1].Channels[0])
	require.Len(t, rec.states, 2)
	require.True(t, rec.states[1].Connected)
	require.Equal(t, uint32(2), rec.states[1].Frames)

	clock.now = clock.now.Add(500 * time.Millisecond)
	require.NoError(t, b.Poll(ctx))
	require.Len(t, rec.states, 2)

	clock.now = clock.now.Add(time.Second)
	require.NoError(t, b.Poll(ctx))
	require.Len(t, rec.states, 3)
	require.False(t, rec.states[2].Connected)
	require.Equal(t, int64(1500), rec.states[2].SinceLastFrame)

	src.data = testFrame(1200)
	require.NoError(t, b.Poll(ctx))
	require.Len(t, rec.states, 4)
	require.True(t, rec.states[3].Connected)

	out, err := rec.frames[2].Message()
	require.NoError(t, err)
	require.Equal(t, uint16(1200), out.Channels[0])
	require.Equal(t, rc.Flags(0), out.Flags)
}

type namedRecorder struct {
	recorder
	name string
}

func (r *namedRecorder) Name() string { return r.name }

func TestPollErrors(t *testing.T) {
	b, src, _ := newTestBridge(t)
	offline := errors.New("offline")
	failed := &namedRecorder{recorder: recorder{err: offline}, name: "broker"}
	ok := &recorder{}
	b.AddSink(failed, ok)

	src.data = testFrame(1000)
	err := b.Poll(context.Background())
	require.Error(t, err)
	errs, isSinkErrs := err.(SinkErrors)
	require.True(t, isSinkErrs)
	require.Len(t, errs, 2)
	require.Equal(t, OpFrame, errs[0].Op)
	require.Equal(t, OpLinkState, errs[1].Op)
	require.Equal(t, []string{"broker"}, errs.Sinks())
	require.True(t, errors.Is(errs[0], offline))
	require.Equal(t, "sink broker frame: offline; sink broker link: offline", err.Error())
	require.Len(t, ok.frames, 1)
	require.Len(t, ok.states, 1)
}

type runnableSink struct {
	recorder
	started chan struct{}
}

func (s *runnableSink) Run(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	b, src, _ := newTestBridge(t)
	b.Interval = time.Millisecond
	src.data = testFrame(1000)

	frameCh := make(chan *msgs.ChannelFrame, 1)
	sink := &runnableSink{started: make(chan struct{})}
	b.AddSink(sink, &SinkFuncs{
		Frame: func(ctx context.Context, f *msgs.ChannelFrame) error {
			frameCh <- f
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(ctx)
	}()

	select {
	case f := <-frameCh:
		require.Equal(t, uint32(1000), f.Channels[0])
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sink not started")
	}
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not stopped")
	}
}

type failingRunnable struct {
	recorder
	runErr error
}

func (r *failingRunnable) Name() string { return "failing" }

func (r *failingRunnable) Run(context.Context) error { return r.runErr }

func TestRunSinkFailure(t *testing.T) {
	b, _, _ := newTestBridge(t)
	b.Interval = time.Millisecond
	connectErr := errors.New("connect refused")
	b.AddSink(&failingRunnable{runErr: connectErr})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// a failing sink is logged, the bridge keeps polling until canceled.
	require.Equal(t, context.DeadlineExceeded, b.Run(ctx))
}

type stuckSink struct {
	recorder
	release chan struct{}
}

func (s *stuckSink) Run(ctx context.Context) error {
	<-s.release
	return nil
}

func TestRunForcedExit(t *testing.T) {
	b, _, _ := newTestBridge(t)
	forced := make(chan struct{})
	b.forced = forced
	sink := &stuckSink{release: make(chan struct{})}
	defer close(sink.release)
	b.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		t.Fatalf("returned %v before the sink stopped", err)
	case <-time.After(20 * time.Millisecond):
	}
	close(forced)
	select {
	case err := <-errCh:
		require.Equal(t, ErrForcedExit, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not stopped")
	}
}
