package operator

import (
	"github.com/gosuda/livechat/internal/transcript"
)

// Console renders the pastor desk as plain terminal lines.
type Console struct {
	w *transcript.Writer
}

func NewConsole(w *transcript.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Directory(entries []Entry) {
	if len(entries) == 0 {
		c.w.Line("== no visitors")
		return
	}
	c.w.Line("== visitors")
	for _, e := range entries {
		mark := " "
		if e.Active {
			mark = "*"
		}
		line := mark + " " + e.ID + "  " + e.Name + " (" + e.Email + ", " + e.Phone + ")"
		if e.Unread {
			line += " new"
		}
		c.w.Line(line)
	}
}

func (c *Console) ShowTranscript(v Visitor) {
	c.w.Linef("== %s  Email: %s, Phone: %s", v.Identity.Name, v.Identity.Email, v.Identity.Phone)
	for _, m := range v.Transcript {
		c.w.Line(transcript.OperatorLine(m))
	}
}

func (c *Console) AppendEntry(_ string, m transcript.Message) {
	c.w.Line(transcript.OperatorLine(m))
}

func (c *Console) ClearPanel() { c.w.Line("== Select a user to chat") }

func (c *Console) Prompt(text string) { c.w.Line("! " + text) }
