package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/livechat/internal/channel"
	"github.com/gosuda/livechat/internal/config"
	"github.com/gosuda/livechat/internal/store"
)

var (
	flagURL       string
	flagDataPath  string
	flagEphemeral bool
)

func addClientFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&flagURL, "url", "", "relay websocket URL (default ws://localhost:8093/ws)")
	flags.StringVar(&flagDataPath, "data-path", "", "profile directory for the transcript cache (PebbleDB)")
	flags.BoolVar(&flagEphemeral, "ephemeral", false, "keep the transcript cache in memory only")
}

func applyClientFlags(cmd *cobra.Command, c *config.Config, role string) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		c.Client.URL = flagURL
	}
	if flags.Changed("data-path") {
		c.Client.DataPath = flagDataPath
	}
	if flags.Changed("ephemeral") {
		c.Client.Ephemeral = flagEphemeral
	}
	if c.Client.DataPath == "" {
		c.Client.DataPath = config.DefaultDataPath(role)
	}
}

// openStore opens the profile's transcript cache.
func openStore(c config.ClientConfig) (store.Store, error) {
	if c.Ephemeral {
		return store.NewMemStore(), nil
	}
	s, err := store.OpenPebble(c.DataPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", c.DataPath).Msg("[store] opened profile")
	return s, nil
}

func channelConfig(c config.ClientConfig) channel.Config {
	cc := channel.DefaultConfig()
	cc.URL = c.URL
	if c.HandshakeTimeout > 0 {
		cc.HandshakeTimeout = c.HandshakeTimeout
	}
	if c.WriteTimeout > 0 {
		cc.WriteTimeout = c.WriteTimeout
	}
	return cc
}

// readLines feeds trimmed input lines to the event loop until in is
// exhausted or ctx ends.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// command splits "/select abc" into ("select", "abc"). Plain text yields
// an empty name.
func command(line string) (name, arg string) {
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	name, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}
