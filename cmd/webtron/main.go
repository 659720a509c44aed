package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"webtron/client/internal/app"
	"webtron/client/internal/arena"
	"webtron/client/internal/telemetry"
	"webtron/client/logging"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())
	cfg := app.ApplyEnv(app.DefaultConfig(), os.Getenv, logger)

	var (
		color   string
		arenaID string
		sinks   string
		level   string
	)
	flag.StringVar(&cfg.URL, "url", cfg.URL, "websocket url of the arena server")
	flag.StringVar(&cfg.PlayerName, "name", cfg.PlayerName, "player name")
	flag.StringVar(&color, "color", string(cfg.PlayerColor), "ribbon colour: blue, green, orange, purple, red or white")
	flag.StringVar(&arenaID, "arena", "", "id of an existing arena to join")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "render ticks per second")
	flag.BoolVar(&cfg.Practice, "practice", cfg.Practice, "play offline against a computer rider")
	flag.StringVar(&sinks, "log-sinks", "", "comma separated event sinks: console, json, memory")
	flag.StringVar(&cfg.Logging.JSON.FilePath, "log-json-path", cfg.Logging.JSON.FilePath, "file for the json event sink")
	flag.StringVar(&level, "log-level", "", "minimum event severity: debug, info, warn or error")
	flag.Parse()

	parsed, ok := arena.ParseColor(color)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown colour %q\n", color)
		os.Exit(2)
	}
	cfg.PlayerColor = parsed
	if arenaID != "" {
		id, err := uuid.Parse(arenaID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid arena id %q: %v\n", arenaID, err)
			os.Exit(2)
		}
		cfg.ArenaID = &id
	}
	if sinks != "" {
		cfg.Logging.EnabledSinks = logging.ParseSinks(sinks)
	}
	if level != "" {
		severity, err := logging.ParseSeverity(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", level, err)
			os.Exit(2)
		}
		cfg.Logging.MinimumSeverity = severity
	}
	cfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, app.Options{}); err != nil {
		log.Fatalf("%v", err)
	}
}
