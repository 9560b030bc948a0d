// Package channel is the client side of the real-time channel: it dials the
// relay with the caller's connect parameters, queues inbound events, and
// emits outbound ones.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
)

// Conn is one live session with the relay.
type Conn struct {
	cfg     Config
	ws      *websocket.Conn
	events  chan protocol.Envelope
	writeCh chan protocol.Envelope
	cancel  context.CancelFunc
	done    chan struct{}

	mu        sync.Mutex
	connected bool
	err       error
}

// Dial connects to cfg.URL with params encoded into the query string. The
// first event delivered on Events is always a synthetic "connect".
func Dial(ctx context.Context, cfg Config, params protocol.ConnectParams) (*Conn, error) {
	if cfg.URL == "" {
		return nil, newError(ErrorInvalidConfig, "empty URL", nil)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, newError(ErrorInvalidConfig, "parse URL", err)
	}
	u.RawQuery = params.Encode()

	dialCtx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, newError(ErrorConnection, "dial "+cfg.URL, err)
	}
	ws.SetReadLimit(1 << 20)

	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = 64
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		cfg:       cfg,
		ws:        ws,
		events:    make(chan protocol.Envelope, buf),
		writeCh:   make(chan protocol.Envelope, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
		connected: true,
	}
	c.events <- protocol.Envelope{Event: protocol.EventConnect}

	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	return c, nil
}

// Events yields inbound events in arrival order. It is closed once the
// session ends; Err then reports why.
func (c *Conn) Events() <-chan protocol.Envelope { return c.events }

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the reason the session ended, or nil while it is live or after
// a clean close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Emit queues one outbound event.
func (c *Conn) Emit(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return newError(ErrorSerialization, "encode "+event, err)
	}
	select {
	case c.writeCh <- env:
		return nil
	case <-c.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session.
func (c *Conn) Close() error {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()
	if !wasConnected {
		c.cancel()
		return nil
	}
	err := c.ws.Close(websocket.StatusNormalClosure, "client close")
	c.cancel()
	return err
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.connected = false
	c.mu.Unlock()
}

func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		close(c.events)
		close(c.done)
	}()
	for {
		data, err := c.read(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				c.fail(nil)
				return
			}
			c.fail(newError(ErrorDisconnected, "read", err))
			_ = c.ws.CloseNow()
			log.Warn().Err(err).Msg("[channel] read loop exit")
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug().Err(err).Msg("[channel] dropping malformed frame")
			continue
		}
		if env.Event == "" {
			log.Debug().Msg("[channel] dropping envelope without event name")
			continue
		}
		select {
		case c.events <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case env := <-c.writeCh:
			if err := c.write(ctx, env); err != nil {
				c.fail(newError(ErrorDisconnected, "write", err))
				log.Warn().Err(err).Msg("[channel] write loop exit")
				_ = c.ws.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// read returns the next frame's payload. Decoding is left to the caller so
// a malformed frame does not tear down the connection.
func (c *Conn) read(ctx context.Context) ([]byte, error) {
	if c.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *Conn) write(ctx context.Context, v any) error {
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, v)
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
