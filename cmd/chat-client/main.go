package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/client"
	"github.com/omochice/art-chat/internal/config"
	"github.com/omochice/art-chat/internal/host"
	"github.com/omochice/art-chat/internal/logging"
	"github.com/omochice/art-chat/internal/store"
	"github.com/omochice/art-chat/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("chat-client", pflag.ExitOnError)
	config.Flags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return err
	}

	// Works around blank web views on some linux GPU drivers.
	if runtime.GOOS == "linux" && os.Getenv("WEBKIT_DISABLE_DMABUF_RENDERER") == "" {
		os.Setenv("WEBKIT_DISABLE_DMABUF_RENDERER", "1")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := host.NewConsole(os.Stdout)
	broker := host.NewBroker(0)
	emitters := host.Fanout{console, broker}

	var db *store.Store
	var recorder *host.Recorder
	if cfg.History.Path != "" {
		db, err = store.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		profile, err := db.LoadProfile(ctx)
		if err != nil {
			return err
		}
		if cfg.Profile.Nickname != "" && cfg.Profile.Nickname != profile.Nickname {
			if profile, err = db.SetNickname(ctx, cfg.Profile.Nickname); err != nil {
				return err
			}
		}
		console.SetColor(profile.Color)
		log.Info().Str("client_id", profile.ID).Str("nickname", profile.Nickname).Msg("profile loaded")

		recorder = host.NewRecorder(db)
		emitters = append(emitters, recorder)
	}

	dialer, err := transport.NewDialer(cfg.Transport)
	if err != nil {
		return err
	}
	log.Info().Str("transport", cfg.Transport).Str("url", cfg.ServerURL).Msg("starting relay")

	relay := client.New(cfg.ClientConfig(), dialer, emitters)

	var sender client.Sender = relay
	if recorder != nil {
		sender = recorder.Wrap(relay)
	}

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx); err != nil {
			log.Debug().Err(err).Msg("relay stopped")
			console.Emit(chat.Event{Name: "error", Payload: err.Error()})
		}
	}()

	var bridge *http.Server
	if cfg.Bridge.Enabled {
		opts := host.BridgeOptions{
			Sender: sender,
			Status: relay.State,
			Broker: broker,
		}
		if db != nil {
			opts.History = db
			opts.Profiles = db
		}
		bridge = &http.Server{
			Addr:    cfg.Bridge.Addr,
			Handler: host.NewBridge(opts).Handler(),
		}
		go func() {
			log.Info().Str("addr", cfg.Bridge.Addr).Msg("host bridge started")
			if err := bridge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("host bridge error")
			}
		}()
	}

	prompt := host.NewPrompt(console, sender, relay.State)
	if db != nil {
		prompt.WithHistory(db).WithProfiles(db)
	}
	if err := prompt.Run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("failed to read input")
	}

	cancel()
	<-relayDone

	if bridge != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := bridge.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("host bridge forced to shutdown")
		}
	}
	log.Info().Msg("Disconnected from server")
	return nil
}
