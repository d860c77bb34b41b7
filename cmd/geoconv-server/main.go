// Command geoconv-server serves the transformer over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonnekleijer/geoconv"
	"github.com/jonnekleijer/geoconv/internal/config"
	"github.com/jonnekleijer/geoconv/internal/logger"
	"github.com/jonnekleijer/geoconv/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"GEOCONV_CONFIG"   description:"Path to configuration file" default:"geoconv.yaml"`
	Database   string `short:"d" long:"database" env:"GEOCONV_DATABASE" description:"SRID database file, embedded database when empty"`
	Listen     string `short:"l" long:"listen"   env:"LISTEN_ADDRESS"   description:"Address to listen on, configured address when empty"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.LoadOrDefault(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	reg := geoconv.NewRegistry(cfg.RegistryOptions())
	if err := reg.Load(); err != nil {
		log.Fatal().Err(err).Str("database", cfg.Database).Msg("Failed to load SRID database")
	}

	srv, err := server.New(cfg, geoconv.NewTransformer(reg, &log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.Server.Listen).
		Int("codes_loaded", reg.Count()).
		Int("source", cfg.Source).
		Int("target", cfg.Target).
		Msg("Web server started")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Web server stopped")
}
