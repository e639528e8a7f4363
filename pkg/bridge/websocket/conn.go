package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/serialrx/pkg/msgs"
)

// Conn reads and writes binary packets on a websocket.
type Conn websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *Conn {
	return (*Conn)(conn)
}

// Dial connects to a Hub, url is like ws://host:port/rx.
func Dial(url string) (*Conn, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket reads one packet.
func (c *Conn) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(c), &pkt)
	return
}

// WritePacket writes one packet.
func (c *Conn) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(c), pkt)
}

// ReadMessage reads and decodes a packet sent by a Hub.
func (c *Conn) ReadMessage() (msgs.SerializableMessage, error) {
	pkt, err := c.ReadPacket()
	if err != nil {
		return nil, err
	}
	return msgs.DecodeTyped(pkt)
}

// Close closes the connection.
func (c *Conn) Close() error {
	return (*websocket.Conn)(c).Close()
}
