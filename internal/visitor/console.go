package visitor

import (
	"github.com/gosuda/livechat/internal/transcript"
)

// Console renders the visitor widget as plain terminal lines.
type Console struct {
	w *transcript.Writer
}

func NewConsole(w *transcript.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Prompt(text string) { c.w.Line("! " + text) }

func (c *Console) ShowChat(name string) {
	c.w.Linef("-- chatting as %s (type a message, /toggle, /quit)", name)
}

func (c *Console) AppendMessage(m transcript.Message) { c.w.Line(transcript.VisitorLine(m)) }

func (c *Console) SetPastorOnline(online bool) {
	if online {
		c.w.Line("-- pastor is online")
		return
	}
	c.w.Line("-- pastor is offline")
}

func (c *Console) SetPanelOpen(open bool) {
	if open {
		c.w.Line("-- chat opened")
		return
	}
	c.w.Line("-- chat closed")
}
