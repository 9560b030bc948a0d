// Package relay is the real-time channel server. It pairs every visitor
// with the pastor: visitors get a private room, the pastor sits in a shared
// room that sees every visitor's traffic.
package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/sanitize"
)

// PastorRoom is the room every pastor connection joins.
const PastorRoom = "pastor_room"

// Manager tracks connected clients and routes events between them.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
	pastors map[string]*Client
	now     func() time.Time
	newID   func() string
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		clients: map[string]*Client{},
		pastors: map[string]*Client{},
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// NewClient builds a client bound to this manager with a fresh id and
// sanitised connect parameters. It does not register it; see Attach.
func (m *Manager) NewClient(params protocol.ConnectParams, conn *websocket.Conn) *Client {
	if params.Role != protocol.RolePastor {
		params = protocol.ConnectParams{
			Role:  protocol.RoleUser,
			Name:  sanitize.Field(params.Name, protocol.AnonymousName),
			Email: sanitize.Field(params.Email, ""),
			Phone: sanitize.Field(params.Phone, ""),
		}
	}
	return newClient(m.newID(), params, conn, m)
}

// PastorOnline reports whether at least one pastor connection is live.
func (m *Manager) PastorOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pastors) > 0
}

// Visitors is the number of connected visitors.
func (m *Manager) Visitors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients) - len(m.pastors)
}

// Attach registers c and announces it.
func (m *Manager) Attach(c *Client) {
	m.mu.Lock()
	m.clients[c.id] = c
	if c.isPastor() {
		m.pastors[c.id] = c
	}
	m.mu.Unlock()

	if c.isPastor() {
		m.broadcast(mustEnvelope(protocol.EventPastorStatus, protocol.PastorStatus{Status: protocol.StatusOnline}))
		log.Info().Str("client", c.id).Msg("[relay] pastor connected")
		return
	}

	status := protocol.StatusOffline
	if m.PastorOnline() {
		status = protocol.StatusOnline
	}
	c.push(mustEnvelope(protocol.EventPastorStatus, protocol.PastorStatus{Status: status}))
	m.toPastors(mustEnvelope(protocol.EventUserConnected, protocol.UserInfo{
		UserID: c.id,
		Name:   c.params.Name,
		Email:  c.params.Email,
		Phone:  c.params.Phone,
		Room:   c.room,
		Status: "connected",
	}))
	log.Info().Str("client", c.id).Str("room", c.room).Msg("[relay] visitor connected")
}

// Detach unregisters c and announces its departure. Detaching twice is a
// no-op.
func (m *Manager) Detach(c *Client) {
	m.mu.Lock()
	if _, ok := m.clients[c.id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, c.id)
	delete(m.pastors, c.id)
	lastPastor := c.isPastor() && len(m.pastors) == 0
	m.mu.Unlock()

	if c.isPastor() {
		if lastPastor {
			m.broadcast(mustEnvelope(protocol.EventPastorStatus, protocol.PastorStatus{Status: protocol.StatusOffline}))
		}
		log.Info().Str("client", c.id).Msg("[relay] pastor disconnected")
		return
	}
	m.toPastors(mustEnvelope(protocol.EventUserDisconnected, protocol.UserInfo{
		UserID: c.id,
		Name:   c.params.Name,
		Status: "disconnected",
	}))
	log.Info().Str("client", c.id).Msg("[relay] visitor disconnected")
}

// Route handles one event sent by c. Only chat_message is accepted from
// clients.
func (m *Manager) Route(c *Client, env protocol.Envelope) {
	if env.Event != protocol.EventChatMessage {
		log.Debug().Str("client", c.id).Str("event", env.Event).Msg("[relay] ignoring client event")
		return
	}
	var in protocol.ChatMessage
	if err := env.Decode(&in); err != nil {
		log.Debug().Err(err).Str("client", c.id).Msg("[relay] bad chat_message")
		return
	}
	text := sanitize.Body(in.Msg)
	if text == "" {
		return
	}
	ts := in.Timestamp
	if ts == "" {
		ts = m.now().UTC().Format(time.RFC3339)
	}
	if c.isPastor() {
		m.fromPastor(in.TargetUserID, text, ts)
		return
	}
	m.fromVisitor(c, text, ts)
}

func (m *Manager) fromPastor(target, text, ts string) {
	m.mu.RLock()
	visitor, ok := m.clients[target]
	m.mu.RUnlock()
	if !ok || visitor.isPastor() {
		log.Debug().Str("target", target).Msg("[relay] pastor message to unknown visitor dropped")
		return
	}
	out := protocol.ChatMessage{
		Msg:       text,
		Timestamp: ts,
		Sender:    protocol.PastorName,
		UserType:  protocol.RolePastor,
	}
	visitor.push(mustEnvelope(protocol.EventChatMessage, out))

	out.Recipient = visitor.params.Name
	out.TargetUserID = visitor.id
	m.toPastors(mustEnvelope(protocol.EventChatMessage, out))
	log.Debug().Str("target", target).Msg("[relay] pastor sent message")
}

func (m *Manager) fromVisitor(c *Client, text, ts string) {
	if !m.PastorOnline() {
		log.Debug().Str("client", c.id).Msg("[relay] no pastor online; visitor message dropped")
		return
	}
	out := mustEnvelope(protocol.EventChatMessage, protocol.ChatMessage{
		Msg:       text,
		Timestamp: ts,
		Sender:    c.params.Name,
		UserType:  protocol.RoleUser,
		UserID:    c.id,
		Email:     c.params.Email,
		Phone:     c.params.Phone,
	})
	m.toPastors(out)
	c.push(out)
}

func (m *Manager) toPastors(env protocol.Envelope) {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.pastors))
	for _, p := range m.pastors {
		targets = append(targets, p)
	}
	m.mu.RUnlock()
	for _, p := range targets {
		p.push(env)
	}
}

func (m *Manager) broadcast(env protocol.Envelope) {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		targets = append(targets, c)
	}
	m.mu.RUnlock()
	for _, c := range targets {
		c.push(env)
	}
}

// Close force-closes every connection (used during shutdown).
func (m *Manager) Close() {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		targets = append(targets, c)
	}
	m.mu.RUnlock()
	for _, c := range targets {
		c.close()
	}
}

func mustEnvelope(event string, payload any) protocol.Envelope {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		// Payloads are plain structs of strings.
		panic(err)
	}
	return env
}
