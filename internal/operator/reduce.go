package operator

import (
	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/transcript"
)

// Op is a render instruction kind.
type Op int

const (
	// OpDirectory redraws the visitor list.
	OpDirectory Op = iota
	// OpShowTranscript redraws the panel with VisitorID's full transcript.
	OpShowTranscript
	// OpAppend adds Message to the panel showing VisitorID.
	OpAppend
	// OpClearPanel empties the panel; nothing is selected.
	OpClearPanel
	// OpPrompt shows Text to the operator.
	OpPrompt
)

func (o Op) String() string {
	switch o {
	case OpDirectory:
		return "directory"
	case OpShowTranscript:
		return "show_transcript"
	case OpAppend:
		return "append"
	case OpClearPanel:
		return "clear_panel"
	case OpPrompt:
		return "prompt"
	default:
		return "unknown"
	}
}

// Instruction tells the renderer what to redraw after a state change.
type Instruction struct {
	Op        Op
	VisitorID string
	Message   transcript.Message
	Text      string
}

// Reducer turns the current state and an event payload into the next state
// and the render instructions it implies. Reducers never touch their input.
type Reducer func(s State, env protocol.Envelope) (State, []Instruction, error)

// Reducers is the dispatch table for inbound channel events.
var Reducers = map[string]Reducer{
	protocol.EventConnect:          reduceConnect,
	protocol.EventUserConnected:    reduceUserConnected,
	protocol.EventUserDisconnected: reduceUserDisconnected,
	protocol.EventChatMessage:      reduceChatMessage,
}

// Reduce routes env through the dispatch table. Events without a reducer
// leave the state as is.
func Reduce(s State, env protocol.Envelope) (State, []Instruction, error) {
	r, ok := Reducers[env.Event]
	if !ok {
		return s, nil, nil
	}
	return r(s, env)
}

func redraw(s State) []Instruction {
	ins := []Instruction{{Op: OpDirectory}}
	if s.active != "" {
		ins = append(ins, Instruction{Op: OpShowTranscript, VisitorID: s.active})
	}
	return ins
}

func reduceConnect(s State, _ protocol.Envelope) (State, []Instruction, error) {
	return s, redraw(s), nil
}

func reduceUserConnected(s State, env protocol.Envelope) (State, []Instruction, error) {
	var info protocol.UserInfo
	if err := env.Decode(&info); err != nil {
		return s, nil, err
	}
	if info.UserID == "" {
		log.Debug().Msg("[pastor] user_connected without user_id")
		return s, nil, nil
	}
	return s.upsert(info), []Instruction{{Op: OpDirectory}}, nil
}

func reduceUserDisconnected(s State, env protocol.Envelope) (State, []Instruction, error) {
	var info protocol.UserInfo
	if err := env.Decode(&info); err != nil {
		return s, nil, err
	}
	next, ins := Remove(s, info.UserID)
	return next, ins, nil
}

func reduceChatMessage(s State, env protocol.Envelope) (State, []Instruction, error) {
	var m transcript.Message
	if err := env.Decode(&m); err != nil {
		return s, nil, err
	}
	owner := protocol.OwnerID(m)
	if owner == "" {
		log.Debug().Str("user_type", string(m.UserType)).Msg("[pastor] dropping message without owner")
		return s, nil, nil
	}
	if _, ok := s.visitors[owner]; !ok {
		s = s.upsert(identityFromMessage(owner, m))
	}
	next := s.appendTo(owner, m)
	ins := []Instruction{{Op: OpDirectory}}
	if next.active == owner {
		ins = append(ins, Instruction{Op: OpAppend, VisitorID: owner, Message: m})
	}
	return next, ins, nil
}

// identityFromMessage rebuilds a directory entry for a visitor that is not
// (or no longer) listed, e.g. after the operator removed it locally.
func identityFromMessage(owner string, m transcript.Message) Identity {
	ident := Identity{UserID: owner}
	if m.UserType == protocol.RoleUser {
		ident.Name, ident.Email, ident.Phone = m.Sender, m.Email, m.Phone
	} else {
		ident.Name = m.Recipient
	}
	if ident.Name == "" {
		ident.Name = protocol.AnonymousName
	}
	return ident
}

// Remove drops a visitor with its transcript and unread flag. When it was
// the active selection the panel is cleared as well.
func Remove(s State, id string) (State, []Instruction) {
	wasActive := id != "" && s.active == id
	next := s.remove(id)
	ins := []Instruction{{Op: OpDirectory}}
	if wasActive {
		ins = append(ins, Instruction{Op: OpClearPanel})
	}
	return next, ins
}

// Select makes id the active selection. It reports false for an unknown id.
func Select(s State, id string) (State, []Instruction, bool) {
	if _, ok := s.visitors[id]; !ok {
		return s, nil, false
	}
	next := s.selectVisitor(id)
	return next, []Instruction{{Op: OpDirectory}, {Op: OpShowTranscript, VisitorID: id}}, true
}
