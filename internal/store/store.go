// Package store is the durable per-profile key/value store backing the
// client-side chat caches.
package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"
)

// Keys used by the visitor and pastor clients.
const (
	KeyUserChatHistory    = "user_chat_history"
	KeyPastorChatHistory  = "pastor_chat_history"
	KeyPastorUsers        = "pastor_users"
	KeyPastorUnread       = "pastor_unread"
	KeyPastorActiveUserID = "pastor_activeUserId"
)

// Store holds string values under string keys. Last writer wins.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// LoadJSON decodes the value stored under key into v. It reports false when
// the key is absent, unreadable or holds malformed JSON; in that case v is
// left untouched so the caller keeps its empty default.
func LoadJSON(s Store, key string, v any) bool {
	raw, ok, err := s.Get(key)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("[store] read failed; using empty default")
		return false
	}
	if !ok || raw == "" {
		return false
	}
	// Decode into a scratch value first so a half-decoded payload never
	// leaks into v.
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	scratch := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(raw), scratch.Interface()); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("[store] malformed content; using empty default")
		return false
	}
	if isNil(scratch.Elem()) {
		return false
	}
	rv.Elem().Set(scratch.Elem())
	return true
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemStore keeps everything in memory. Used for tests and ephemeral runs.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]string{}}
}

func (m *MemStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Close() error { return nil }
