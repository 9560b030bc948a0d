// Package operator implements the pastor side of the live chat: a directory
// of connected visitors, each with its own cached transcript and unread
// flag, and the single active selection.
package operator

import (
	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/transcript"
)

// Identity is a visitor as announced by user_connected.
type Identity = protocol.UserInfo

// Visitor is one directory entry. The transcript and unread flag live with
// the identity so the three can never drift apart.
type Visitor struct {
	Identity   Identity
	Transcript transcript.Transcript
	Unread     bool
}

// State is an immutable snapshot of the directory. Every change goes through
// a function returning a new State; a State handed out is never modified.
type State struct {
	visitors map[string]Visitor
	order    []string
	active   string
}

// NewState returns an empty directory.
func NewState() State {
	return State{visitors: map[string]Visitor{}}
}

// Len is the number of known visitors.
func (s State) Len() int { return len(s.order) }

// Active returns the selected visitor id, or "" when nothing is selected.
func (s State) Active() string { return s.active }

// Visitor looks up one entry.
func (s State) Visitor(id string) (Visitor, bool) {
	v, ok := s.visitors[id]
	return v, ok
}

// Visitors lists entries in directory order.
func (s State) Visitors() []Visitor {
	out := make([]Visitor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.visitors[id])
	}
	return out
}

// IDs lists visitor ids in directory order.
func (s State) IDs() []string {
	return append([]string(nil), s.order...)
}

// clone copies the containers. Transcripts are shared; appendTo never
// writes into a shared backing array.
func (s State) clone() State {
	c := State{
		visitors: make(map[string]Visitor, len(s.visitors)),
		order:    append([]string(nil), s.order...),
		active:   s.active,
	}
	for id, v := range s.visitors {
		c.visitors[id] = v
	}
	return c
}

// upsert replaces the identity of id, creating the entry with an empty
// transcript when it is new.
func (s State) upsert(ident Identity) State {
	c := s.clone()
	v, ok := c.visitors[ident.UserID]
	if !ok {
		c.order = append(c.order, ident.UserID)
		v.Transcript = transcript.Transcript{}
	}
	v.Identity = ident
	c.visitors[ident.UserID] = v
	return c
}

// remove drops id with its transcript and unread flag, and the selection
// when it pointed at id.
func (s State) remove(id string) State {
	if _, ok := s.visitors[id]; !ok {
		return s
	}
	c := s.clone()
	delete(c.visitors, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.active == id {
		c.active = ""
	}
	return c
}

// appendTo adds m to id's transcript and raises its unread flag unless it is
// the active selection. id must be known.
func (s State) appendTo(id string, m transcript.Message) State {
	c := s.clone()
	v := c.visitors[id]
	n := len(v.Transcript)
	// Full slice expression: force a copy instead of writing past the end
	// of a backing array other snapshots may share.
	v.Transcript = append(v.Transcript[:n:n], m)
	if c.active != id {
		v.Unread = true
	}
	c.visitors[id] = v
	return c
}

// selectVisitor makes id active and clears exactly its unread flag.
func (s State) selectVisitor(id string) State {
	c := s.clone()
	v := c.visitors[id]
	v.Unread = false
	c.visitors[id] = v
	c.active = id
	return c
}
