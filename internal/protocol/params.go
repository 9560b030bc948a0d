package protocol

import (
	"net/url"
	"strings"
)

// AnonymousName labels visitors that connected without a name.
const AnonymousName = "Anonymous"

// ConnectParams identify a client when it opens the channel. They travel in
// the websocket URL query string.
type ConnectParams struct {
	Role  Role
	Name  string
	Email string
	Phone string
}

// Encode renders the query string, e.g.
// user_type=user&name=Jo&email=jo%40x.com&phone=555.
func (p ConnectParams) Encode() string {
	if p.Role == RolePastor {
		return "user_type=" + string(RolePastor)
	}
	var b strings.Builder
	b.WriteString("user_type=")
	b.WriteString(string(RoleUser))
	b.WriteString("&name=")
	b.WriteString(escape(p.Name))
	b.WriteString("&email=")
	b.WriteString(escape(p.Email))
	b.WriteString("&phone=")
	b.WriteString(escape(p.Phone))
	return b.String()
}

// ParseConnectParams is the inverse of Encode. Anything that is not
// explicitly a pastor is treated as a visitor.
func ParseConnectParams(q url.Values) ConnectParams {
	if Role(q.Get("user_type")) == RolePastor {
		return ConnectParams{Role: RolePastor}
	}
	p := ConnectParams{
		Role:  RoleUser,
		Name:  q.Get("name"),
		Email: q.Get("email"),
		Phone: q.Get("phone"),
	}
	if p.Name == "" {
		p.Name = AnonymousName
	}
	return p
}

// escape percent-encodes a value the way browsers' encodeURIComponent does:
// spaces become %20, not '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
