package ws

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendBuffer = 32

// client is one websocket connection. Outbound frames go through a
// buffered channel drained by a single writer goroutine, since gorilla
// connections allow only one concurrent writer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// close stops the writer and closes the connection.
func (c *client) close() {
	close(c.send)
}
