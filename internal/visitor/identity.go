package visitor

import (
	"errors"
	"strings"

	"github.com/gosuda/livechat/internal/protocol"
)

// PromptMissingFields is shown when the pre-chat form is incomplete.
const PromptMissingFields = "Please fill in all fields."

// ErrMissingField rejects an identity with an empty name, email or phone.
var ErrMissingField = errors.New("visitor: name, email and phone are required")

// Identity is what the visitor enters before chatting.
type Identity struct {
	Name  string
	Email string
	Phone string
}

// Normalize trims surrounding whitespace from every field.
func (id Identity) Normalize() Identity {
	return Identity{
		Name:  strings.TrimSpace(id.Name),
		Email: strings.TrimSpace(id.Email),
		Phone: strings.TrimSpace(id.Phone),
	}
}

// Validate reports ErrMissingField unless every field is non-empty after
// trimming.
func (id Identity) Validate() error {
	n := id.Normalize()
	if n.Name == "" || n.Email == "" || n.Phone == "" {
		return ErrMissingField
	}
	return nil
}

// ConnectParams tags a channel session with this identity.
func (id Identity) ConnectParams() protocol.ConnectParams {
	n := id.Normalize()
	return protocol.ConnectParams{
		Role:  protocol.RoleUser,
		Name:  n.Name,
		Email: n.Email,
		Phone: n.Phone,
	}
}
