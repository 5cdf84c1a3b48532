package controlapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// wsClient is one connected event-stream subscriber, grounded on the
// teacher's websocket.Client read/write pump pair: writePump ticks a
// websocket ping on pingPeriod so idle connections aren't silently dropped
// by intermediaries, and readPump does nothing but keep the read deadline
// alive via pong handling and unregister the client when the peer goes
// away (this stream is server push only, so any inbound payload besides
// pong framing is simply ignored).
type wsClient struct {
	id   string
	hub  *hub
	conn *websocket.Conn
	send chan Event
}

func newWSClient(h *hub, conn *websocket.Conn) *wsClient {
	return &wsClient{id: uuid.NewString(), hub: h, conn: conn, send: make(chan Event, sendBufferSize)}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := msgpack.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
