package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serialrx/pkg/msgs"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
)

const disconnectTimeout = time.Second

// ChannelsTopic is the topic of frames from bridge id.
func ChannelsTopic(id string) string {
	return id + "/channels"
}

// LinkTopic is the retained link state topic of bridge id.
func LinkTopic(id string) string {
	return id + "/link"
}

// Publisher publishes frames and link states of one bridge.
// The retained link state turns disconnected when the bridge goes away.
type Publisher struct {
	Queue *Queue
	ID    string

	lock      sync.Mutex
	lastState []byte
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL, id string, p protocol.Protocol) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	will, err := proto.Marshal(&msgs.LinkState{Protocol: p.String()})
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+LinkTopic(id), will, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rx:" + id)
	}
	pub := &Publisher{ID: id, lastState: will}
	pub.Queue = NewQueue(opts, topicPrefix)
	pub.Queue.OnConnect = func(*Queue) { pub.republish() }
	return pub, nil
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect: %w", err)
	}
	<-ctx.Done()

	var offline msgs.LinkState
	p.lock.Lock()
	err := proto.Unmarshal(p.lastState, &offline)
	p.lock.Unlock()
	if err == nil {
		offline.Connected = false
		offline.Timestamp = time.Now().UnixNano()
		var token paho.Token
		if token, err = p.publishLinkState(&offline); err == nil {
			if !token.WaitTimeout(disconnectTimeout) {
				glog.Warning("publish offline state: timeout")
			}
			err = token.Error()
		}
		if err != nil {
			glog.Warningf("publish offline state: %v", err)
		}
	}
	p.Queue.Close()
	return ctx.Err()
}

// PublishFrame implements bridge.Sink.
func (p *Publisher) PublishFrame(ctx context.Context, f *msgs.ChannelFrame) error {
	payload, err := proto.Marshal(f)
	if err != nil {
		return err
	}
	p.Queue.Pub(ChannelsTopic(p.ID), payload)
	return nil
}

// PublishLinkState implements bridge.Sink. It doesn't wait for delivery,
// paho retries QoS 1 messages itself.
func (p *Publisher) PublishLinkState(ctx context.Context, state *msgs.LinkState) error {
	_, err := p.publishLinkState(state)
	return err
}

func (p *Publisher) publishLinkState(state *msgs.LinkState) (paho.Token, error) {
	payload, err := proto.Marshal(state)
	if err != nil {
		return nil, err
	}
	p.lock.Lock()
	p.lastState = payload
	p.lock.Unlock()
	return p.Queue.PubWith(LinkTopic(p.ID), payload, 1, true), nil
}

func (p *Publisher) republish() {
	p.lock.Lock()
	payload := p.lastState
	p.lock.Unlock()
	if payload != nil {
		p.Queue.PubWith(LinkTopic(p.ID), payload, 1, true)
	}
}
