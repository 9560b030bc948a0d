package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/livechat/internal/channel"
	"github.com/gosuda/livechat/internal/protocol"
)

func startRelay(t *testing.T) (*Manager, string) {
	t.Helper()
	mgr := NewManager()
	srv := httptest.NewServer(NewHTTPServer(mgr).Router())
	t.Cleanup(func() {
		mgr.Close()
		srv.Close()
	})
	return mgr, srv.URL
}

func dial(t *testing.T, base string, params protocol.ConnectParams) *channel.Conn {
	t.Helper()
	cfg := channel.DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(base, "http") + "/ws"
	c, err := channel.Dial(context.Background(), cfg, params)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitFor skips events until one named event arrives.
func waitFor(t *testing.T, c *channel.Conn, event string) protocol.Envelope {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case env, ok := <-c.Events():
			require.True(t, ok, "channel closed while waiting for %s", event)
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func TestHealthz(t *testing.T) {
	_, base := startRelay(t)
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelayEndToEnd(t *testing.T) {
	mgr, base := startRelay(t)
	ctx := context.Background()

	pastor := dial(t, base, protocol.ConnectParams{Role: protocol.RolePastor})
	waitFor(t, pastor, protocol.EventPastorStatus)
	require.Eventually(t, mgr.PastorOnline, 5*time.Second, 10*time.Millisecond)

	visitor := dial(t, base, protocol.ConnectParams{Role: protocol.RoleUser, Name: "Jo Ann", Email: "jo@x.com", Phone: "555"})
	st := waitFor(t, visitor, protocol.EventPastorStatus)
	var status protocol.PastorStatus
	require.NoError(t, st.Decode(&status))
	assert.True(t, status.Online())

	var info protocol.UserInfo
	require.NoError(t, waitFor(t, pastor, protocol.EventUserConnected).Decode(&info))
	assert.Equal(t, "Jo Ann", info.Name)
	assert.Equal(t, "jo@x.com", info.Email)
	require.NotEmpty(t, info.UserID)

	require.NoError(t, visitor.Emit(ctx, protocol.EventChatMessage, protocol.ChatMessage{Msg: "if a<b and c>d"}))
	var atPastor protocol.ChatMessage
	require.NoError(t, waitFor(t, pastor, protocol.EventChatMessage).Decode(&atPastor))
	assert.Equal(t, "if a<b and c>d", atPastor.Msg)
	assert.Equal(t, info.UserID, protocol.OwnerID(atPastor))
	var echo protocol.ChatMessage
	require.NoError(t, waitFor(t, visitor, protocol.EventChatMessage).Decode(&echo))
	assert.Equal(t, "Jo Ann", echo.Sender)

	require.NoError(t, pastor.Emit(ctx, protocol.EventChatMessage, protocol.ChatMessage{Msg: "welcome", TargetUserID: info.UserID}))
	var reply protocol.ChatMessage
	require.NoError(t, waitFor(t, visitor, protocol.EventChatMessage).Decode(&reply))
	assert.Equal(t, "welcome", reply.Msg)
	assert.Equal(t, protocol.PastorName, reply.Sender)
	assert.Empty(t, reply.TargetUserID)
	var copyAtPastor protocol.ChatMessage
	require.NoError(t, waitFor(t, pastor, protocol.EventChatMessage).Decode(&copyAtPastor))
	assert.Equal(t, info.UserID, protocol.OwnerID(copyAtPastor))

	require.NoError(t, visitor.Close())
	var gone protocol.UserInfo
	require.NoError(t, waitFor(t, pastor, protocol.EventUserDisconnected).Decode(&gone))
	assert.Equal(t, info.UserID, gone.UserID)
}
