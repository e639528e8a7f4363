package mqtt

import (
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serialrx/pkg/msgs"
)

// WatchFrames subscribes frames of bridge id, "+" for all bridges.
func WatchFrames(q *Queue, id string, handler func(topic string, f *msgs.ChannelFrame)) *Subscription {
	return q.Sub(ChannelsTopic(id), func(topic string, payload []byte) {
		var f msgs.ChannelFrame
		if err := proto.Unmarshal(payload, &f); err != nil {
			glog.Warningf("decode %q: %v", topic, err)
			return
		}
		handler(topic, &f)
	})
}

// WatchLinkState subscribes link states of bridge id, "+" for all bridges.
func WatchLinkState(q *Queue, id string, handler func(topic string, state *msgs.LinkState)) *Subscription {
	return q.Sub(LinkTopic(id), func(topic string, payload []byte) {
		var state msgs.LinkState
		if err := proto.Unmarshal(payload, &state); err != nil {
			glog.Warningf("decode %q: %v", topic, err)
			return
		}
		handler(topic, &state)
	})
}
