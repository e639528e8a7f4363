package bridge

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/msgs"
	"github.com/robotalks/serialrx/pkg/rc"
	"github.com/robotalks/serialrx/pkg/rx"
)

// DefaultInterval is the default polling interval.
const DefaultInterval = 5 * time.Millisecond

// Bridge polls a Receiver and publishes to sinks.
type Bridge struct {
	Receiver *rx.Receiver
	Interval time.Duration
	Clock    rx.TimeSource

	sinks   []Sink
	runners []Runnable
	forced  <-chan struct{}

	seq       uint64
	linkKnown bool
	linkUp    bool
}

// New creates a Bridge.
func New(recv *rx.Receiver) *Bridge {
	return &Bridge{
		Receiver: recv,
		Interval: DefaultInterval,
		Clock:    rx.SystemClock,
	}
}

// AddSink registers sinks. Sinks implementing Runnable are run with the
// bridge.
func (b *Bridge) AddSink(sinks ...Sink) *Bridge {
	b.sinks = append(b.sinks, sinks...)
	for _, sink := range sinks {
		if runner, ok := sink.(Runnable); ok {
			b.runners = append(b.runners, runner)
		}
	}
	return b
}

// Run implements Runnable. Runnable sinks run until ctx is done and Run
// waits for them before returning.
func (b *Bridge) Run(ctx context.Context) error {
	sinks := startSinks(ctx, b.runners)
	interval := b.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := sinks.wait(b.forced); err != nil {
				glog.Errorf("shutdown: %v", err)
				if err == ErrForcedExit {
					return err
				}
			}
			return ctx.Err()
		case <-ticker.C:
			if err := b.Poll(ctx); err != nil {
				glog.Errorf("publish: %v", err)
			}
		}
	}
}

// RunOrFail runs the bridge until the context is canceled and exits on
// other errors, including a forced exit.
func (b *Bridge) RunOrFail(ctx context.Context) {
	if err := b.Run(ctx); err != nil && err != context.Canceled {
		glog.Fatal(err)
	}
}

// Poll drains the receiver once, publishes decoded frames and the link
// state when it changes. A failing sink doesn't stop publishing to the
// others; the failures are returned as SinkErrors.
func (b *Bridge) Poll(ctx context.Context) error {
	var errs SinkErrors
	b.Receiver.Update()
	now := b.Clock.Time()
	var msg rc.Message
	for b.Receiver.Next(&msg) {
		b.seq++
		frame := msgs.NewChannelFrame(b.Receiver.Protocol(), &msg, now, b.seq)
		glog.V(4).Infof("frame %d: %s", b.seq, msg.String())
		for _, sink := range b.sinks {
			errs.add(sink, OpFrame, sink.PublishFrame(ctx, frame))
		}
	}

	up := b.Receiver.Stats().Frames > 0 && !b.Receiver.Failsafe()
	if !b.linkKnown || up != b.linkUp {
		b.linkKnown, b.linkUp = true, up
		state := b.LinkState()
		if up {
			glog.Infof("link up: %s", state.Protocol)
		} else {
			glog.Warningf("link down: %s, last frame %dms ago", state.Protocol, state.SinceLastFrame)
		}
		for _, sink := range b.sinks {
			errs.add(sink, OpLinkState, sink.PublishLinkState(ctx, state))
		}
	}
	return errs.errorOrNil()
}

// LinkState returns the current link state.
func (b *Bridge) LinkState() *msgs.LinkState {
	return &msgs.LinkState{
		Connected:      b.linkUp,
		Protocol:       b.Receiver.Protocol().String(),
		Timestamp:      b.Clock.Time().UnixNano(),
		SinceLastFrame: int64(b.Receiver.TimeSinceLastMessage() / time.Millisecond),
		Frames:         b.Receiver.Stats().Frames,
		Rejected:       b.Receiver.ParserStats().Rejected,
	}
}
