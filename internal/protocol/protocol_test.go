package protocol

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectParamsEncodeVisitor(t *testing.T) {
	p := ConnectParams{Role: RoleUser, Name: "Jo", Email: "jo@x.com", Phone: "555"}
	assert.Equal(t, "user_type=user&name=Jo&email=jo%40x.com&phone=555", p.Encode())
}

func TestConnectParamsEncodeSpacesAndPlus(t *testing.T) {
	p := ConnectParams{Role: RoleUser, Name: "Jo Ann", Email: "a+b@x.com", Phone: "+1 555"}
	enc := p.Encode()
	assert.Equal(t, "user_type=user&name=Jo%20Ann&email=a%2Bb%40x.com&phone=%2B1%20555", enc)

	q, err := url.ParseQuery(enc)
	require.NoError(t, err)
	assert.Equal(t, p, ParseConnectParams(q))
}

func TestConnectParamsEncodePastor(t *testing.T) {
	p := ConnectParams{Role: RolePastor, Name: "ignored"}
	assert.Equal(t, "user_type=pastor", p.Encode())
}

func TestParseConnectParamsDefaults(t *testing.T) {
	p := ParseConnectParams(url.Values{})
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, AnonymousName, p.Name)

	p = ParseConnectParams(url.Values{"user_type": {"admin"}, "name": {"x"}})
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, "x", p.Name)
}

func TestOwnerID(t *testing.T) {
	cases := []struct {
		name string
		msg  ChatMessage
		want string
	}{
		{"visitor authored", ChatMessage{UserType: RoleUser, UserID: "u1", TargetUserID: "u2"}, "u1"},
		{"pastor authored", ChatMessage{UserType: RolePastor, TargetUserID: "u2"}, "u2"},
		{"pastor copy without target", ChatMessage{UserType: RolePastor}, ""},
		{"untagged falls back to target", ChatMessage{TargetUserID: "u3"}, "u3"},
		{"visitor without id", ChatMessage{UserType: RoleUser}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OwnerID(tc.msg))
		})
	}
}

func TestEnvelopeDecode(t *testing.T) {
	env, err := NewEnvelope(EventPastorStatus, PastorStatus{Status: StatusOnline})
	require.NoError(t, err)

	var st PastorStatus
	require.NoError(t, env.Decode(&st))
	assert.True(t, st.Online())

	assert.Error(t, Envelope{Event: EventChatMessage}.Decode(&st))
	assert.Error(t, Envelope{Event: EventChatMessage, Data: []byte("{")}.Decode(&st))
}
