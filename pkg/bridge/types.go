// Package bridge forwards decoded RC messages to remote consumers.
package bridge

import (
	"context"

	"github.com/robotalks/serialrx/pkg/msgs"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Sink receives decoded frames and link state changes.
// Publish methods are called from the bridge loop and must not block for long.
type Sink interface {
	PublishFrame(context.Context, *msgs.ChannelFrame) error
	PublishLinkState(context.Context, *msgs.LinkState) error
}

// SinkFuncs builds a Sink from funcs, nil funcs are skipped.
type SinkFuncs struct {
	Frame     func(context.Context, *msgs.ChannelFrame) error
	LinkState func(context.Context, *msgs.LinkState) error
}

// PublishFrame implements Sink.
func (s *SinkFuncs) PublishFrame(ctx context.Context, f *msgs.ChannelFrame) error {
	if s.Frame != nil {
		return s.Frame(ctx, f)
	}
	return nil
}

// PublishLinkState implements Sink.
func (s *SinkFuncs) PublishLinkState(ctx context.Context, state *msgs.LinkState) error {
	if s.LinkState != nil {
		return s.LinkState(ctx, state)
	}
	return nil
}
