package operator

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

// Prompts shown to the operator.
const (
	PromptSelectVisitor = "Select a user to chat with."
	PromptNotConnected  = "Not connected to the chat server."
)

var (
	// ErrNoSelection is returned by Send when no visitor is selected.
	ErrNoSelection = errors.New("operator: no visitor selected")
	// ErrUnknownVisitor is returned for ids missing from the directory.
	ErrUnknownVisitor = errors.New("operator: unknown visitor")
	// ErrNotConnected is returned by Send before a channel is attached.
	ErrNotConnected = errors.New("operator: not connected")
)

// Channel is the outbound half of the pastor's channel session.
type Channel interface {
	Emit(ctx context.Context, event string, payload any) error
}

// Entry is one line of the rendered directory.
type Entry struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Unread bool
	Active bool
}

// Renderer is the operator console surface.
type Renderer interface {
	Directory(entries []Entry)
	ShowTranscript(v Visitor)
	AppendEntry(visitorID string, m transcript.Message)
	ClearPanel()
	Prompt(text string)
}

// Desk owns the operator state for one console session. It is not safe for
// concurrent use: callers drive it from a single event loop.
type Desk struct {
	store  store.Store
	render Renderer
	ch     Channel
	state  State
}

// NewDesk restores persisted state from st.
func NewDesk(st store.Store, r Renderer) *Desk {
	return &Desk{store: st, render: r, state: Load(st)}
}

// Attach sets the channel used by Send.
func (d *Desk) Attach(ch Channel) { d.ch = ch }

// State returns the current snapshot.
func (d *Desk) State() State { return d.state }

// Handle applies one inbound channel event.
func (d *Desk) Handle(env protocol.Envelope) error {
	if _, ok := Reducers[env.Event]; !ok {
		log.Debug().Str("event", env.Event).Msg("[pastor] ignoring event")
		return nil
	}
	next, ins, err := Reduce(d.state, env)
	if err != nil {
		return err
	}
	d.commit(next, ins)
	return nil
}

// Select shows id's cached transcript and clears its unread flag.
func (d *Desk) Select(id string) error {
	next, ins, ok := Select(d.state, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVisitor, id)
	}
	d.commit(next, ins)
	return nil
}

// Delete removes id from the local directory only. Nothing is sent to the
// channel; the visitor's session is unaffected.
func (d *Desk) Delete(id string) error {
	if _, ok := d.state.Visitor(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVisitor, id)
	}
	next, ins := Remove(d.state, id)
	d.commit(next, ins)
	return nil
}

// Send addresses text to the active selection. Blank text is a no-op.
func (d *Desk) Send(ctx context.Context, text string) error {
	target := d.state.Active()
	if target == "" {
		d.render.Prompt(PromptSelectVisitor)
		return ErrNoSelection
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if d.ch == nil {
		d.render.Prompt(PromptNotConnected)
		return ErrNotConnected
	}
	msg := protocol.ChatMessage{Msg: text, TargetUserID: target}
	if err := d.ch.Emit(ctx, protocol.EventChatMessage, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Redraw re-renders the directory and the active transcript.
func (d *Desk) Redraw() {
	d.apply(redraw(d.state))
}

func (d *Desk) commit(next State, ins []Instruction) {
	d.state = next
	if err := Save(d.store, d.state); err != nil {
		log.Warn().Err(err).Msg("[pastor] persist state failed")
	}
	d.apply(ins)
}

func (d *Desk) apply(ins []Instruction) {
	for _, in := range ins {
		switch in.Op {
		case OpDirectory:
			d.render.Directory(d.entries())
		case OpShowTranscript:
			if v, ok := d.state.Visitor(in.VisitorID); ok {
				d.render.ShowTranscript(v)
			}
		case OpAppend:
			d.render.AppendEntry(in.VisitorID, in.Message)
		case OpClearPanel:
			d.render.ClearPanel()
		case OpPrompt:
			d.render.Prompt(in.Text)
		}
	}
}

func (d *Desk) entries() []Entry {
	vs := d.state.Visitors()
	out := make([]Entry, 0, len(vs))
	for _, v := range vs {
		out = append(out, Entry{
			ID:     v.Identity.UserID,
			Name:   v.Identity.Name,
			Email:  v.Identity.Email,
			Phone:  v.Identity.Phone,
			Unread: v.Unread,
			Active: v.Identity.UserID == d.state.Active(),
		})
	}
	return out
}
