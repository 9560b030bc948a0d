package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 1 << 20
)

// Client is one websocket participant: a visitor or the pastor.
type Client struct {
	id     string
	params protocol.ConnectParams
	room   string
	conn   *websocket.Conn
	send   chan protocol.Envelope
	mgr    *Manager

	mu     sync.Mutex
	closed bool
}

func newClient(id string, params protocol.ConnectParams, conn *websocket.Conn, mgr *Manager) *Client {
	c := &Client{
		id:     id,
		params: params,
		conn:   conn,
		mgr:    mgr,
		send:   make(chan protocol.Envelope, sendBufferSize),
	}
	if params.Role == protocol.RolePastor {
		c.room = PastorRoom
	} else {
		c.room = "user_" + id
	}
	return c
}

// ID is the opaque identifier visitors are known by on the pastor side.
func (c *Client) ID() string { return c.id }

func (c *Client) isPastor() bool { return c.params.Role == protocol.RolePastor }

func (c *Client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("[relay] read message")
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("[relay] malformed envelope")
			continue
		}
		c.mgr.Route(c, env)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				log.Debug().Err(err).Str("client", c.id).Msg("[relay] write json")
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

// push queues env without blocking; when the buffer is full the oldest
// queued event is dropped.
func (c *Client) push(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- env:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	c.mgr.Detach(c)
}
