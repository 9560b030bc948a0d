package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/livechat/internal/protocol"
)

// echoServer answers every chat_message with the same text tagged as
// pastor-authored, after announcing the pastor as online. The raw query
// string of the handshake is reported on queries.
func echoServer(t *testing.T, queries chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()
		ctx := r.Context()
		status, _ := protocol.NewEnvelope(protocol.EventPastorStatus, protocol.PastorStatus{Status: protocol.StatusOnline})
		if err := wsjson.Write(ctx, ws, status); err != nil {
			return
		}
		for {
			var env protocol.Envelope
			if err := wsjson.Read(ctx, ws, &env); err != nil {
				return
			}
			var in protocol.ChatMessage
			if err := env.Decode(&in); err != nil {
				return
			}
			out, _ := protocol.NewEnvelope(protocol.EventChatMessage, protocol.ChatMessage{
				Msg: in.Msg, Sender: protocol.PastorName, UserType: protocol.RolePastor,
			})
			if err := wsjson.Write(ctx, ws, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, c *Conn) protocol.Envelope {
	t.Helper()
	select {
	case env, ok := <-c.Events():
		require.True(t, ok, "events closed early")
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return protocol.Envelope{}
}

func TestDialEmitAndReceive(t *testing.T) {
	queries := make(chan string, 1)
	srv := echoServer(t, queries)

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Dial(ctx, cfg, protocol.ConnectParams{Role: protocol.RoleUser, Name: "Jo", Email: "jo@x.com", Phone: "555"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "user_type=user&name=Jo&email=jo%40x.com&phone=555", <-queries)
	assert.Equal(t, protocol.EventConnect, nextEvent(t, c).Event)

	env := nextEvent(t, c)
	require.Equal(t, protocol.EventPastorStatus, env.Event)
	var st protocol.PastorStatus
	require.NoError(t, env.Decode(&st))
	assert.True(t, st.Online())

	require.NoError(t, c.Emit(ctx, protocol.EventChatMessage, protocol.ChatMessage{Msg: "hello"}))
	env = nextEvent(t, c)
	require.Equal(t, protocol.EventChatMessage, env.Event)
	var msg protocol.ChatMessage
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, "hello", msg.Msg)
	assert.Equal(t, protocol.RolePastor, msg.UserType)
}

func TestEmitAfterClose(t *testing.T) {
	queries := make(chan string, 1)
	srv := echoServer(t, queries)

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	c, err := Dial(context.Background(), cfg, protocol.ConnectParams{Role: protocol.RolePastor})
	require.NoError(t, err)
	assert.Equal(t, "user_type=pastor", <-queries)

	_ = c.Close()
	err = c.Emit(context.Background(), protocol.EventChatMessage, protocol.ChatMessage{Msg: "late"})
	assert.ErrorIs(t, err, ErrNotConnected)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.NoError(t, c.Err())
}

func TestDialErrors(t *testing.T) {
	_, err := Dial(context.Background(), Config{}, protocol.ConnectParams{})
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorInvalidConfig, ce.Code)

	cfg := DefaultConfig()
	cfg.URL = "ws://127.0.0.1:1/ws"
	cfg.HandshakeTimeout = time.Second
	_, err = Dial(context.Background(), cfg, protocol.ConnectParams{})
	assert.True(t, IsConnectionError(err))
}

func TestMalformedFramesAreSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()
		ctx := r.Context()
		for _, frame := range []string{
			"not json",
			`{"data":{"msg":"no event"}}`,
			`{"event":"chat_message","data":{"msg":"still here","user_type":"pastor"}}`,
		} {
			if err := ws.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	c, err := Dial(context.Background(), cfg, protocol.ConnectParams{Role: protocol.RolePastor})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, protocol.EventConnect, nextEvent(t, c).Event)
	env := nextEvent(t, c)
	require.Equal(t, protocol.EventChatMessage, env.Event)
	var msg protocol.ChatMessage
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, "still here", msg.Msg)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end promptly after the server closed")
	}
	assert.NoError(t, c.Err())
}

func TestAbruptServerCloseEndsPromptly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.Write(r.Context(), websocket.MessageText, []byte(`{"event":"pastor_status","data":{"status":"online"}}`))
		time.Sleep(100 * time.Millisecond)
		_ = ws.CloseNow()
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	c, err := Dial(context.Background(), cfg, protocol.ConnectParams{Role: protocol.RoleUser, Name: "Jo"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, protocol.EventConnect, nextEvent(t, c).Event)
	assert.Equal(t, protocol.EventPastorStatus, nextEvent(t, c).Event)

	start := time.Now()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end promptly after the connection dropped")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}
