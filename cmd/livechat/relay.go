package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"

	"github.com/gosuda/livechat/internal/config"
	"github.com/gosuda/livechat/internal/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the chat relay that pairs visitors with the pastor",
	RunE:  runRelay,
}

var (
	flagServerURLs []string
	flagPort       int
	flagName       string
	flagCredKey    string
)

func init() {
	flags := relayCmd.Flags()
	flags.StringSliceVar(&flagServerURLs, "server-url", nil, "Portal relay server URL(s); repeat or comma-separated (env RELAY)")
	flags.IntVar(&flagPort, "port", 8093, "local HTTP port (negative to disable)")
	flags.StringVar(&flagName, "name", "livechat", "backend display name on Portal")
	flags.StringVar(&flagCredKey, "cred-key", "", "optional credential key for the Portal listener (base64 encoded)")
}

func applyRelayFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("server-url") {
		c.Relay.ServerURLs = flagServerURLs
	}
	if flags.Changed("port") {
		c.Relay.Port = flagPort
	}
	if flags.Changed("name") {
		c.Relay.Name = flagName
	}
	if flags.Changed("cred-key") {
		c.Relay.CredKey = flagCredKey
	}
}

func runRelay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyRelayFlags(cmd, cfg)
	rc := cfg.Relay
	if rc.Port < 0 && len(rc.ServerURLs) == 0 {
		return fmt.Errorf("nothing to serve: set --port or --server-url")
	}

	mgr := relay.NewManager()
	mux := relay.NewHTTPServer(mgr).Router()

	var unpublish func()
	if len(rc.ServerURLs) > 0 {
		ln, closeClient, err := publish(rc)
		if err != nil {
			return err
		}
		unpublish = func() {
			_ = ln.Close()
			closeClient()
		}
		go func() {
			if err := http.Serve(ln, mux); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
				log.Error().Err(err).Msg("[relay] portal http error")
			}
		}()
	}

	var httpSrv *http.Server
	if rc.Port >= 0 {
		httpSrv = &http.Server{Addr: fmt.Sprintf(":%d", rc.Port), Handler: mux, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 60 * time.Second}
		log.Info().Msgf("[relay] serving locally at http://127.0.0.1:%d", rc.Port)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("[relay] local http stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	if unpublish != nil {
		unpublish()
	}
	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("[relay] http server shutdown error")
		}
	}
	mgr.Close()
	log.Info().Msg("[relay] shutdown complete")
	return nil
}

// publish registers the relay with the Portal servers and returns the
// listener that carries its traffic.
func publish(rc config.RelayConfig) (net.Listener, func(), error) {
	cred := sdk.NewCredential()
	if rc.CredKey != "" {
		key, err := base64.StdEncoding.DecodeString(rc.CredKey)
		if err != nil {
			return nil, nil, fmt.Errorf("decode cred key: %w", err)
		}
		cred2, err := cryptoops.NewCredentialFromPrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("new credential from private key: %w", err)
		}
		cred = cred2
	}

	client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = rc.ServerURLs })
	if err != nil {
		return nil, nil, fmt.Errorf("new client: %w", err)
	}
	closeClient := func() { _ = client.Close() }
	ln, err := client.Listen(cred, rc.Name, []string{"http/1.1"})
	if err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("listen: %w", err)
	}
	log.Info().Strs("servers", rc.ServerURLs).Msgf("[relay] published as %q", rc.Name)
	return ln, closeClient, nil
}
