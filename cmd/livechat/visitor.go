package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/livechat/internal/channel"
	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/transcript"
	"github.com/gosuda/livechat/internal/visitor"
)

var visitorCmd = &cobra.Command{
	Use:   "visitor",
	Short: "Chat with the pastor as a website visitor",
	RunE:  runVisitor,
}

var (
	flagVisitorName  string
	flagVisitorEmail string
	flagVisitorPhone string
)

func init() {
	flags := visitorCmd.Flags()
	flags.StringVar(&flagVisitorName, "name", "", "your name (asked for when empty)")
	flags.StringVar(&flagVisitorEmail, "email", "", "your email (asked for when empty)")
	flags.StringVar(&flagVisitorPhone, "phone", "", "your phone (asked for when empty)")
	addClientFlags(visitorCmd)
}

func runVisitor(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyClientFlags(cmd, cfg, "visitor")
	if err := cfg.Validate(); err != nil {
		return err
	}
	st, err := openStore(cfg.Client)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("[visitor] store close error")
		}
	}()

	w := transcript.NewWriter(os.Stdout)
	cc := channelConfig(cfg.Client)
	var conn *channel.Conn
	sess := visitor.New(st, visitor.NewConsole(w), func(ctx context.Context, p protocol.ConnectParams) (visitor.Channel, error) {
		c, err := channel.Dial(ctx, cc, p)
		if err != nil {
			return nil, err
		}
		conn = c
		return c, nil
	})

	lines := readLines(ctx, os.Stdin)
	id := visitor.Identity{Name: flagVisitorName, Email: flagVisitorEmail, Phone: flagVisitorPhone}
	for sess.State() == visitor.StateForm {
		id, err = fillForm(ctx, w, lines, id)
		if err != nil {
			return nil
		}
		if err := sess.Submit(ctx, id); err != nil {
			log.Debug().Err(err).Msg("[visitor] form rejected")
			if !errors.Is(err, visitor.ErrMissingField) {
				id = visitor.Identity{}
			}
		}
	}
	defer conn.Close()
	sess.OpenPanel()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-events:
			if !ok {
				if err := conn.Err(); err != nil {
					log.Warn().Err(err).Msg("[visitor] chat session ended")
				}
				w.Line("-- disconnected")
				return nil
			}
			if err := sess.Handle(env); err != nil {
				log.Debug().Err(err).Str("event", env.Event).Msg("[visitor] bad event")
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch name, arg := command(line); name {
			case "":
				if err := sess.Send(ctx, arg); err != nil {
					log.Warn().Err(err).Msg("[visitor] send failed")
				}
			case "toggle":
				sess.Toggle()
			case "open":
				sess.OpenPanel()
			case "close":
				sess.ClosePanel()
			case "quit":
				return nil
			default:
				w.Linef("! unknown command /%s (try /toggle, /open, /close, /quit)", name)
			}
		}
	}
}

// fillForm asks for every blank identity field. It fails once input ends.
func fillForm(ctx context.Context, w *transcript.Writer, lines <-chan string, id visitor.Identity) (visitor.Identity, error) {
	fields := []struct {
		label string
		v     *string
	}{
		{"Name", &id.Name},
		{"Email", &id.Email},
		{"Phone", &id.Phone},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.v) != "" {
			continue
		}
		w.Linef("%s:", f.label)
		select {
		case <-ctx.Done():
			return id, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return id, errInputClosed
			}
			*f.v = line
		}
	}
	return id, nil
}

var errInputClosed = errors.New("input closed")
