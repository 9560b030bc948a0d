package transcript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/livechat/internal/protocol"
)

func TestAppendKeepsArrivalOrder(t *testing.T) {
	var tr Transcript
	for _, body := range []string{"one", "two", "three", "two"} {
		tr = tr.Append(Message{Msg: body})
	}
	got := make([]string, 0, len(tr))
	for _, m := range tr {
		got = append(got, m.Msg)
	}
	assert.Equal(t, []string{"one", "two", "three", "two"}, got)
}

func TestCloneIsIndependent(t *testing.T) {
	tr := Transcript{{Msg: "a"}}
	c := tr.Clone()
	c[0].Msg = "changed"
	c = c.Append(Message{Msg: "b"})
	assert.Equal(t, "a", tr[0].Msg)
	assert.Len(t, tr, 1)
	assert.NotNil(t, Transcript(nil).Clone())
}

func TestLines(t *testing.T) {
	visitor := Message{Msg: "hi", Sender: "Jo", Email: "jo@x.com", Phone: "555", UserType: protocol.RoleUser}
	pastor := Message{Msg: "hello", Sender: "Pastor", UserType: protocol.RolePastor}

	assert.Equal(t, "Jo: hi", VisitorLine(visitor))
	assert.Equal(t, "Pastor: hello", VisitorLine(pastor))
	assert.Equal(t, "Jo (jo@x.com, 555): hi", OperatorLine(visitor))
	assert.Equal(t, "Pastor: hello", OperatorLine(pastor))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Line("a")
	w.Linef("%s-%d", "b", 2)
	assert.Equal(t, "a\nb-2\n", buf.String())
}
