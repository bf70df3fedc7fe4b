// Package ws is the websocket transport: it upgrades connections, runs the
// read and write pumps, and bridges frames to and from the coordinator. It
// is the only concurrent edge of the system; everything behind the
// coordinator inbox is single threaded.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driftroom/protocol"
	"driftroom/runtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Inbound frames are small JSON envelopes; anything bigger is not ours.
	maxFrameSize = 4096

	sendBuffer = 64
)

// Client owns one websocket connection. Its Send and Kick methods satisfy
// contract.Sink and are safe to call from the coordinator goroutine while
// the pumps run on their own.
type Client struct {
	id    string
	log   *slog.Logger
	conn  *websocket.Conn
	coord *runtime.Coordinator

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, log *slog.Logger, conn *websocket.Conn, coord *runtime.Coordinator) *Client {
	return &Client{
		id:    id,
		log:   log,
		conn:  conn,
		coord: coord,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
}

// Send queues one outbound event. It never blocks the caller: a client that
// cannot drain its buffer loses frames rather than stalling the room.
func (c *Client) Send(event string, data any) {
	raw, err := protocol.Encode(event, data)
	if err != nil {
		c.log.Error("frame encode failed", "event", event, "error", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- raw:
	default:
		c.log.Debug("send buffer full, frame dropped", "conn_id", c.id, "event", event)
	}
}

// Kick asks the write pump to close the connection. Session cleanup happens
// when the read pump reports the disconnect.
func (c *Client) Kick() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readPump() {
	defer func() {
		c.coord.Disconnect(c.id)
		c.Kick()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Debug("read pump error", "conn_id", c.id, "error", err)
			}
			return
		}

		frame, err := protocol.Decode(raw)
		if err != nil || frame.Event == "" {
			c.log.Debug("malformed frame ignored", "conn_id", c.id, "error", err)
			continue
		}
		c.coord.Deliver(c.id, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
