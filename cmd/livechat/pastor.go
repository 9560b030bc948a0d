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
	"github.com/gosuda/livechat/internal/operator"
	"github.com/gosuda/livechat/internal/protocol"
	"github.com/gosuda/livechat/internal/transcript"
)

var pastorCmd = &cobra.Command{
	Use:   "pastor",
	Short: "Answer visitors from the pastor console",
	RunE:  runPastor,
}

func init() {
	addClientFlags(pastorCmd)
}

func runPastor(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyClientFlags(cmd, cfg, "pastor")
	if err := cfg.Validate(); err != nil {
		return err
	}
	st, err := openStore(cfg.Client)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("[pastor] store close error")
		}
	}()

	w := transcript.NewWriter(os.Stdout)
	desk := operator.NewDesk(st, operator.NewConsole(w))

	conn, err := channel.Dial(ctx, channelConfig(cfg.Client), protocol.ConnectParams{Role: protocol.RolePastor})
	if err != nil {
		return err
	}
	defer conn.Close()
	desk.Attach(conn)

	lines := readLines(ctx, os.Stdin)
	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-events:
			if !ok {
				if err := conn.Err(); err != nil {
					log.Warn().Err(err).Msg("[pastor] chat session ended")
				}
				w.Line("-- disconnected")
				return nil
			}
			if err := desk.Handle(env); err != nil {
				log.Debug().Err(err).Str("event", env.Event).Msg("[pastor] bad event")
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := pastorCommand(ctx, w, desk, line); quit {
				return nil
			}
		}
	}
}

// pastorCommand runs one console line and reports whether to quit.
func pastorCommand(ctx context.Context, w *transcript.Writer, desk *operator.Desk, line string) bool {
	name, arg := command(line)
	switch name {
	case "":
		err := desk.Send(ctx, arg)
		if err != nil && !errors.Is(err, operator.ErrNoSelection) {
			log.Warn().Err(err).Msg("[pastor] send failed")
		}
	case "select", "delete":
		id, err := resolveVisitor(desk.State(), arg)
		if err != nil {
			w.Linef("! %v", err)
			return false
		}
		if name == "select" {
			err = desk.Select(id)
		} else {
			err = desk.Delete(id)
		}
		if err != nil {
			w.Linef("! %v", err)
		}
	case "list":
		desk.Redraw()
	case "quit":
		return true
	default:
		w.Linef("! unknown command /%s (try /select, /delete, /list, /quit)", name)
	}
	return false
}

// resolveVisitor accepts a full id or an unambiguous prefix of one.
func resolveVisitor(s operator.State, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing visitor id")
	}
	if _, ok := s.Visitor(arg); ok {
		return arg, nil
	}
	var match string
	for _, id := range s.IDs() {
		if strings.HasPrefix(id, arg) {
			if match != "" {
				return "", errors.New("ambiguous visitor id " + arg)
			}
			match = id
		}
	}
	if match == "" {
		return "", operator.ErrUnknownVisitor
	}
	return match, nil
}
