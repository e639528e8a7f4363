package bridge

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/msgs"
)

// LogSink logs frames at verbosity Level and link states as info.
type LogSink struct {
	Level glog.Level
}

// Name implements Named.
func (s *LogSink) Name() string {
	return "log"
}

// PublishFrame implements Sink.
func (s *LogSink) PublishFrame(ctx context.Context, f *msgs.ChannelFrame) error {
	if glog.V(s.Level) {
		glog.Infof("%s #%d %v flags=%02x", f.Protocol, f.Seq, f.Channels, f.Flags)
	}
	return nil
}

// PublishLinkState implements Sink.
func (s *LogSink) PublishLinkState(ctx context.Context, state *msgs.LinkState) error {
	glog.Infof("link %s connected=%v frames=%d rejected=%d", state.Protocol, state.Connected, state.Frames, state.Rejected)
	return nil
}
