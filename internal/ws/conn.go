package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// transport adapts a gorilla connection to the hub's send/close capability.
// gorilla permits one concurrent writer, so sends serialize on a mutex; this
// also preserves per-connection send order.
type transport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newTransport(conn *websocket.Conn) *transport {
	return &transport{conn: conn}
}

func (t *transport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *transport) Close() error {
	return t.conn.Close()
}
