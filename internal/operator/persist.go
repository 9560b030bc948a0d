package operator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gosuda/livechat/internal/store"
	"github.com/gosuda/livechat/internal/transcript"
)

// tables is the persisted layout: three maps keyed by visitor id plus the
// active selection, each under its own store key.
type tables struct {
	users  map[string]Identity
	chats  map[string]transcript.Transcript
	unread map[string]bool
	active string
}

func (s State) tables() tables {
	t := tables{
		users:  make(map[string]Identity, len(s.visitors)),
		chats:  make(map[string]transcript.Transcript, len(s.visitors)),
		unread: make(map[string]bool, len(s.visitors)),
		active: s.active,
	}
	for id, v := range s.visitors {
		t.users[id] = v.Identity
		t.chats[id] = v.Transcript.Clone()
		t.unread[id] = v.Unread
	}
	return t
}

// Save writes the full state. Every key is written on every call.
func Save(st store.Store, s State) error {
	t := s.tables()
	var errs []error
	if err := store.SaveJSON(st, store.KeyPastorChatHistory, t.chats); err != nil {
		errs = append(errs, err)
	}
	if err := store.SaveJSON(st, store.KeyPastorUsers, t.users); err != nil {
		errs = append(errs, err)
	}
	if err := store.SaveJSON(st, store.KeyPastorUnread, t.unread); err != nil {
		errs = append(errs, err)
	}
	if t.active != "" {
		if err := st.Set(store.KeyPastorActiveUserID, t.active); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", store.KeyPastorActiveUserID, err))
		}
	} else if err := st.Delete(store.KeyPastorActiveUserID); err != nil {
		errs = append(errs, fmt.Errorf("delete %s: %w", store.KeyPastorActiveUserID, err))
	}
	return errors.Join(errs...)
}

// Load restores the state written by Save. Unreadable tables count as empty.
// Transcripts and unread flags without a matching identity are dropped, and
// a stored selection that no longer resolves is cleared.
func Load(st store.Store) State {
	var t tables
	if !store.LoadJSON(st, store.KeyPastorChatHistory, &t.chats) {
		t.chats = map[string]transcript.Transcript{}
	}
	if !store.LoadJSON(st, store.KeyPastorUsers, &t.users) {
		t.users = map[string]Identity{}
	}
	if !store.LoadJSON(st, store.KeyPastorUnread, &t.unread) {
		t.unread = map[string]bool{}
	}
	if v, ok, err := st.Get(store.KeyPastorActiveUserID); err == nil && ok {
		t.active = v
	}
	return t.state()
}

func (t tables) state() State {
	s := NewState()
	ids := make([]string, 0, len(t.users))
	for id := range t.users {
		if id != "" {
			ids = append(ids, id)
		}
	}
	// Map order is lost in storage; sort so reloads are deterministic.
	sort.Strings(ids)
	for _, id := range ids {
		ident := t.users[id]
		ident.UserID = id
		tr := t.chats[id]
		if tr == nil {
			tr = transcript.Transcript{}
		}
		s.visitors[id] = Visitor{Identity: ident, Transcript: tr, Unread: t.unread[id]}
		s.order = append(s.order, id)
	}
	if _, ok := s.visitors[t.active]; ok {
		s.active = t.active
	}
	return s
}
