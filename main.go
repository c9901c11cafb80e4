// ABOUTME: Entry point for the voicelink voice client
// ABOUTME: Parses CLI flags, sets up logging and runs the call
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/voicelink-go/internal/app"
	"github.com/Resonate-Protocol/voicelink-go/internal/config"
	"github.com/Resonate-Protocol/voicelink-go/internal/logging"
	"github.com/Resonate-Protocol/voicelink-go/internal/version"
)

var (
	configFile  = flag.String("config", "", "Config file path (default: ./voicelink.yaml or ~/.config/voicelink/voicelink.yaml)")
	relay       = flag.String("relay", "", "Relay address host:port (skip direct Gemini connection)")
	discover    = flag.Bool("discover", false, "Find a relay with mDNS")
	voice       = flag.String("voice", "", "Prebuilt voice name")
	logFile     = flag.String("log-file", "", "Log file path")
	logLevel    = flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	useTUI := !*noTUI

	// TUI mode: log only to file; otherwise to the console as well
	closer, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: !useTUI,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	log.Info().Str("version", version.Version).Bool("tui", useTUI).Msg("starting voicelink")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, useTUI)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		closer.Close()
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("voicelink exited with error")
		closer.Close()
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the loaded config
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "relay":
			cfg.Relay = *relay
		case "discover":
			cfg.Discover = *discover
		case "voice":
			cfg.Voice = *voice
		case "log-file":
			cfg.LogFile = *logFile
		case "log-level":
			cfg.LogLevel = *logLevel
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})
}
