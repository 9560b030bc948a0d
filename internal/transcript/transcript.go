// Package transcript holds the message history types and line formatting
// shared by the visitor and pastor clients.
package transcript

import (
	"fmt"
	"io"
	"sync"

	"github.com/gosuda/livechat/internal/protocol"
)

// Message is one cached chat entry. It is the chat_message payload as the
// client received it, plus whatever defaults the client filled in.
type Message = protocol.ChatMessage

// Transcript is the ordered history of one conversation, in arrival order.
type Transcript []Message

// Append returns the transcript with m added at the end.
func (t Transcript) Append(m Message) Transcript {
	return append(t, m)
}

// Clone returns an independent copy.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// VisitorLine renders a message the way the visitor widget shows it.
func VisitorLine(m Message) string {
	return fmt.Sprintf("%s: %s", m.Sender, m.Msg)
}

// OperatorLine renders a message the way the pastor console shows it.
func OperatorLine(m Message) string {
	if m.UserType == protocol.RolePastor {
		return fmt.Sprintf("%s: %s", protocol.PastorName, m.Msg)
	}
	return fmt.Sprintf("%s (%s, %s): %s", m.Sender, m.Email, m.Phone, m.Msg)
}

// Writer prints lines to an io.Writer. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Line writes one line followed by a newline.
func (w *Writer) Line(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = io.WriteString(w.out, s+"\n")
}

// Linef formats and writes one line.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}
