// Package env builds a receiver and its bridge from flags and environment.
package env

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/serialrx/pkg/bridge"
	"github.com/robotalks/serialrx/pkg/bridge/mqtt"
	"github.com/robotalks/serialrx/pkg/bridge/websocket"
	"github.com/robotalks/serialrx/pkg/rx"
	"github.com/robotalks/serialrx/pkg/rx/protocol"
	"github.com/robotalks/serialrx/pkg/source"
)

// SBusBaudRate is the fixed SBUS baud rate.
const SBusBaudRate = 100000

// Config provides options to setup a receiver bridge.
type Config struct {
	// Port is the serial port, or a capture file when Replay is set.
	Port     string
	Replay   bool
	Protocol string
	// BaudRate 0 selects the protocol default.
	BaudRate      int
	Timeout       time.Duration
	IdleThreshold time.Duration
	QueueSize     int

	// ID names the bridge in MQTT topics.
	ID string
	// MQTTBrokerURL enables MQTT publishing.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// WebsocketAddr enables the websocket stream, e.g. :8080
	WebsocketAddr string
	// FrameLogLevel is the glog verbosity logging every frame.
	FrameLogLevel int
}

var defaultConfig = Config{
	Port:          "/dev/ttyUSB0",
	Protocol:      protocol.ProtocolIBus.String(),
	Timeout:       rx.DefaultTimeout,
	QueueSize:     protocol.DefaultQueueSize,
	FrameLogLevel: 3,
}

func init() {
	if val := os.Getenv("RX_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("RX_PROTOCOL"); val != "" {
		defaultConfig.Protocol = val
	}
	if val := os.Getenv("RX_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("RX_WS_ADDR"); val != "" {
		defaultConfig.WebsocketAddr = val
	}
	if val := os.Getenv("RX_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port")
	flag.BoolVar(&defaultConfig.Replay, "replay", defaultConfig.Replay, "Replay -port as a raw capture file")
	flag.StringVar(&defaultConfig.Protocol, "protocol", defaultConfig.Protocol, "Receiver protocol: ibus, sbus")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate, 0 for protocol default")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Link loss timeout")
	flag.DurationVar(&defaultConfig.IdleThreshold, "idle", defaultConfig.IdleThreshold, "Idle gap treated as frame boundary, 0 to disable")
	flag.IntVar(&defaultConfig.QueueSize, "queue", defaultConfig.QueueSize, "Decoded message queue size")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address")
	flag.IntVar(&defaultConfig.FrameLogLevel, "frame-log-level", defaultConfig.FrameLogLevel, "Log verbosity of frames")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// BaudRateOf returns the configured baud rate or the protocol default.
func (c *Config) BaudRateOf(p protocol.Protocol) int {
	if c.BaudRate > 0 {
		return c.BaudRate
	}
	if p == protocol.ProtocolSBus {
		return SBusBaudRate
	}
	return rx.DefaultBaudRate
}

// NewSource creates the byte source, not opened yet.
func (c *Config) NewSource(p protocol.Protocol) *source.Reader {
	if c.Replay {
		return source.OpenFile(c.Port)
	}
	return source.OpenSerial(c.Port, source.SerialMode(p))
}

// Env is a started receiver with the sinks to publish to.
type Env struct {
	Config   *Config
	Protocol protocol.Protocol
	Source   *source.Reader
	Receiver *rx.Receiver
	Sinks    []bridge.Sink
}

// OpenReceiver opens the source and begins a receiver.
func (c *Config) OpenReceiver() (*rx.Receiver, *source.Reader, error) {
	p, err := protocol.ParseProtocol(c.Protocol)
	if err != nil {
		return nil, nil, err
	}
	src, recv := c.NewSource(p), rx.NewReceiver()
	err = recv.Begin(rx.Config{
		Source:        src,
		Protocol:      p,
		BaudRate:      c.BaudRateOf(p),
		Timeout:       c.Timeout,
		IdleThreshold: c.IdleThreshold,
		QueueSize:     c.QueueSize,
	})
	if err != nil {
		return nil, nil, err
	}
	return recv, src, nil
}

// NewEnv opens the receiver and creates sinks.
func (c *Config) NewEnv() (*Env, error) {
	p, err := protocol.ParseProtocol(c.Protocol)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, fmt.Errorf("bridge id must be specified")
	}
	env := &Env{
		Config:   c,
		Protocol: p,
		Sinks:    []bridge.Sink{&bridge.LogSink{Level: glog.Level(c.FrameLogLevel)}},
	}
	if c.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, c.ID, p)
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %w", err)
		}
		env.Sinks = append(env.Sinks, pub)
	}
	if c.WebsocketAddr != "" {
		env.Sinks = append(env.Sinks, websocket.NewHub(c.WebsocketAddr))
	}
	if env.Receiver, env.Source, err = c.OpenReceiver(); err != nil {
		return nil, err
	}
	return env, nil
}

// MustNewEnv creates Env and exits on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return env
}

// NewBridge creates a bridge publishing to all sinks.
func (e *Env) NewBridge() *bridge.Bridge {
	return bridge.New(e.Receiver).AddSink(e.Sinks...)
}

// Close closes the source.
func (e *Env) Close() error {
	return e.Source.Close()
}
