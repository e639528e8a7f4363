// Package websocket streams receiver output to websocket clients.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/serialrx/pkg/bridge"
	"github.com/robotalks/serialrx/pkg/msgs"
)

// DefaultPath is where the stream is served.
const DefaultPath = "/rx"

// clientQueueSize is the number of packets buffered per client. Packets are
// dropped for clients falling further behind.
const clientQueueSize = 16

// Hub broadcasts msgs.Typed packets to all connected clients. A client
// receives the latest link state when it connects.
type Hub struct {
	Addr string

	lock      sync.Mutex
	clients   map[*client]struct{}
	lastState []byte
	handler   http.Handler
}

type client struct {
	conn    *Conn
	queue   chan []byte
	dropped int
}

var (
	_ bridge.Sink     = &Hub{}
	_ bridge.Runnable = &Hub{}
)

// NewHub creates a Hub listening on addr when run.
func NewHub(addr string) *Hub {
	h := &Hub{Addr: addr, clients: make(map[*client]struct{})}
	h.handler = websocket.Handler(h.serve)
	return h
}

// Name implements bridge.Named.
func (h *Hub) Name() string {
	return "websocket"
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// Run implements bridge.Runnable.
func (h *Hub) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, h)
	server := &http.Server{Handler: mux}
	glog.Infof("websocket: serving on %s%s", ln.Addr(), DefaultPath)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	select {
	case <-ctx.Done():
		server.Close()
		<-errCh
		h.closeClients()
		return ctx.Err()
	case err := <-errCh:
		h.closeClients()
		return err
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// PublishFrame implements bridge.Sink.
func (h *Hub) PublishFrame(ctx context.Context, f *msgs.ChannelFrame) error {
	pkt, err := encode(f)
	if err != nil {
		return err
	}
	h.broadcast(pkt)
	return nil
}

// PublishLinkState implements bridge.Sink.
func (h *Hub) PublishLinkState(ctx context.Context, state *msgs.LinkState) error {
	pkt, err := encode(state)
	if err != nil {
		return err
	}
	h.lock.Lock()
	h.lastState = pkt
	h.lock.Unlock()
	h.broadcast(pkt)
	return nil
}

func encode(msg msgs.SerializableMessage) ([]byte, error) {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	return typed.Encode()
}

func (h *Hub) broadcast(pkt []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.queue <- pkt:
		default:
			c.dropped++
		}
	}
}

func (h *Hub) closeClients() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *Hub) serve(ws *websocket.Conn) {
	c := &client{conn: New(ws), queue: make(chan []byte, clientQueueSize)}
	h.lock.Lock()
	if h.lastState != nil {
		c.queue <- h.lastState
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	remote := ws.Request().RemoteAddr
	glog.V(2).Infof("websocket: %s connected", remote)

	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
		glog.V(2).Infof("websocket: %s disconnected, %d dropped", remote, c.dropped)
	}()

	// the client never sends, a read returns when it goes away.
	closedCh := make(chan struct{})
	go func() {
		defer close(closedCh)
		for {
			if _, err := c.conn.ReadPacket(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case pkt := <-c.queue:
			if err := c.conn.WritePacket(pkt); err != nil {
				glog.V(2).Infof("websocket: %s write: %v", remote, err)
				return
			}
		case <-closedCh:
			return
		}
	}
}
