// Package visitor implements the visitor side of the live chat: the pre-chat
// identity form, the single channel session, and the locally cached
// transcript.
package visitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/store"
	"github.com/gosuda/livechat/internal/transcript"
)

// PromptUnreachable is shown when the channel cannot be opened.
const PromptUnreachable = "Could not reach the chat server. Please try again."

// ErrSessionOpen is returned by Submit once a session already exists.
var ErrSessionOpen = errors.New("visitor: session already open")

// State is the lifecycle stage of a Session.
type State int

const (
	// StateForm waits for the identity form.
	StateForm State = iota
	// StateChatting has a live channel session.
	StateChatting
)

func (s State) String() string {
	switch s {
	case StateForm:
		return "form"
	case StateChatting:
		return "chatting"
	default:
		return "unknown"
	}
}

// Channel is the outbound half of a live channel session.
type Channel interface {
	Emit(ctx context.Context, event string, payload any) error
}

// Dialer opens a channel session tagged with params.
type Dialer func(ctx context.Context, params protocol.ConnectParams) (Channel, error)

// Renderer is the visitor's UI surface.
type Renderer interface {
	Prompt(text string)
	ShowChat(name string)
	AppendMessage(m transcript.Message)
	SetPastorOnline(online bool)
	SetPanelOpen(open bool)
}

// Session is the visitor chat handler. It is not safe for concurrent use:
// callers drive it from a single event loop.
type Session struct {
	store  store.Store
	render Renderer
	dial   Dialer

	state    State
	identity Identity
	ch       Channel
	history  transcript.Transcript

	panelOpen    bool
	pastorKnown  bool
	pastorOnline bool

	handlers map[string]func(protocol.Envelope) error
}

// New builds a session in StateForm.
func New(s store.Store, r Renderer, dial Dialer) *Session {
	sess := &Session{
		store:   s,
		render:  r,
		dial:    dial,
		history: transcript.Transcript{},
	}
	sess.handlers = map[string]func(protocol.Envelope) error{
		protocol.EventConnect:      sess.onConnect,
		protocol.EventChatMessage:  sess.onChatMessage,
		protocol.EventPastorStatus: sess.onPastorStatus,
	}
	return sess
}

func (s *Session) State() State                       { return s.state }
func (s *Session) Identity() Identity                 { return s.identity }
func (s *Session) History() transcript.Transcript     { return s.history.Clone() }
func (s *Session) PanelOpen() bool                    { return s.panelOpen }
func (s *Session) PastorOnline() (online, known bool) { return s.pastorOnline, s.pastorKnown }

// Submit validates the form and opens the one channel session for this page
// load. A rejected form leaves the session untouched.
func (s *Session) Submit(ctx context.Context, id Identity) error {
	if s.state != StateForm {
		return ErrSessionOpen
	}
	if err := id.Validate(); err != nil {
		s.render.Prompt(PromptMissingFields)
		return err
	}
	id = id.Normalize()

	ch, err := s.dial(ctx, id.ConnectParams())
	if err != nil {
		s.render.Prompt(PromptUnreachable)
		return fmt.Errorf("open session: %w", err)
	}
	s.identity = id
	s.ch = ch
	s.state = StateChatting
	s.render.ShowChat(id.Name)
	s.loadHistory()
	return nil
}

// loadHistory restores and renders the stored transcript. Anything
// unreadable is treated as no history.
func (s *Session) loadHistory() {
	var stored transcript.Transcript
	if !store.LoadJSON(s.store, store.KeyUserChatHistory, &stored) {
		return
	}
	s.history = stored
	for _, m := range s.history {
		s.render.AppendMessage(m)
	}
}

// Handle applies one inbound channel event.
func (s *Session) Handle(env protocol.Envelope) error {
	h, ok := s.handlers[env.Event]
	if !ok {
		log.Debug().Str("event", env.Event).Msg("[visitor] ignoring event")
		return nil
	}
	return h(env)
}

func (s *Session) onConnect(protocol.Envelope) error {
	log.Info().Msgf("[visitor] connected to live chat as %s", s.identity.Name)
	return nil
}

func (s *Session) onChatMessage(env protocol.Envelope) error {
	var m transcript.Message
	if err := env.Decode(&m); err != nil {
		return err
	}
	if m.Sender == "" {
		m.Sender = s.identity.Name
	}
	s.history = s.history.Append(m)
	s.persist()
	s.render.AppendMessage(m)
	return nil
}

func (s *Session) onPastorStatus(env protocol.Envelope) error {
	var st protocol.PastorStatus
	if err := env.Decode(&st); err != nil {
		return err
	}
	s.pastorKnown = true
	s.pastorOnline = st.Online()
	s.render.SetPastorOnline(s.pastorOnline)
	return nil
}

func (s *Session) persist() {
	if err := store.SaveJSON(s.store, store.KeyUserChatHistory, s.history); err != nil {
		log.Warn().Err(err).Msg("[visitor] persist history failed")
	}
}

// Send submits text through the session. Blank text, or no open session,
// is a no-op.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || s.state != StateChatting || s.ch == nil {
		return nil
	}
	if err := s.ch.Emit(ctx, protocol.EventChatMessage, protocol.ChatMessage{Msg: text}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Toggle flips the chat panel between open and closed.
func (s *Session) Toggle() {
	s.panelOpen = !s.panelOpen
	s.render.SetPanelOpen(s.panelOpen)
}

// ClosePanel hides the chat panel.
func (s *Session) ClosePanel() {
	s.panelOpen = false
	s.render.SetPanelOpen(false)
}

// OpenPanel shows the chat panel.
func (s *Session) OpenPanel() {
	s.panelOpen = true
	s.render.SetPanelOpen(true)
}
