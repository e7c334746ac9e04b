package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/omochice/art-chat/internal/chat"
	"github.com/omochice/art-chat/internal/logging"
	"github.com/omochice/art-chat/internal/transport/ws"
)

func main() {
	port := pflag.StringP("port", "p", ":8080", "Address to listen on for WebSocket clients (e.g., :8080)")
	level := pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	pflag.Parse()

	if err := logging.Setup(*level, "console", os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("invalid logging flags")
	}

	srv := ws.New(*port, chat.NewHub())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *port).Msg("Starting chat server")
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		srv.Stop()
	}

	log.Info().Msg("Chat server stopped")
}
