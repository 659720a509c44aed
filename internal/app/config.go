package app

import (
	"strconv"

	"github.com/google/uuid"

	"webtron/client/internal/arena"
	"webtron/client/internal/telemetry"
	"webtron/client/logging"
)

const (
	DefaultURL        = "ws://localhost:3000/ws"
	DefaultPlayerName = "player"
	DefaultFPS        = 60
	DefaultMaxResyncs = 3
)

type Config struct {
	URL         string
	PlayerName  string
	PlayerColor arena.Color
	// ArenaID joins an existing arena instead of asking for a new one.
	ArenaID  *arena.ID
	FPS      int
	Practice bool
	// MaxResyncs bounds how many times a lost batch stream is recovered by
	// reconnecting before Run gives up.
	MaxResyncs int
	Logging    logging.Config
	// ExtraSinks are attached to the event router next to the configured
	// ones.
	ExtraSinks []logging.NamedSink
	Logger     telemetry.Logger
}

// DefaultConfig returns a configuration for a local server. Events go to a
// JSON file because the terminal belongs to the view.
func DefaultConfig() Config {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = []string{logging.SinkJSON}
	return Config{
		URL:         DefaultURL,
		PlayerName:  DefaultPlayerName,
		PlayerColor: arena.ColorBlue,
		FPS:         DefaultFPS,
		MaxResyncs:  DefaultMaxResyncs,
		Logging:     logCfg,
	}
}

// ApplyEnv overrides cfg from WEBTRON_* variables read through getenv.
// Invalid values are reported through logger and ignored.
func ApplyEnv(cfg Config, getenv func(string) string, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	if raw := getenv("WEBTRON_URL"); raw != "" {
		cfg.URL = raw
	}
	if raw := getenv("WEBTRON_PLAYER_NAME"); raw != "" {
		cfg.PlayerName = raw
	}
	if raw := getenv("WEBTRON_PLAYER_COLOR"); raw != "" {
		if color, ok := arena.ParseColor(raw); ok {
			cfg.PlayerColor = color
		} else {
			logger.Printf("invalid WEBTRON_PLAYER_COLOR=%q: unknown colour", raw)
		}
	}
	if raw := getenv("WEBTRON_ARENA_ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			cfg.ArenaID = &id
		} else {
			logger.Printf("invalid WEBTRON_ARENA_ID=%q: %v", raw, err)
		}
	}
	if raw := getenv("WEBTRON_FPS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.FPS = value
		} else if err != nil {
			logger.Printf("invalid WEBTRON_FPS=%q: %v", raw, err)
		} else {
			logger.Printf("invalid WEBTRON_FPS=%q: must be positive", raw)
		}
	}
	if raw := getenv("WEBTRON_PRACTICE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Practice = value
		} else {
			logger.Printf("invalid WEBTRON_PRACTICE=%q: %v", raw, err)
		}
	}
	if raw := getenv("WEBTRON_LOG_SINKS"); raw != "" {
		cfg.Logging.EnabledSinks = logging.ParseSinks(raw)
	}
	if raw := getenv("WEBTRON_LOG_JSON_PATH"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := getenv("WEBTRON_LOG_LEVEL"); raw != "" {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid WEBTRON_LOG_LEVEL=%q: %v", raw, err)
		}
	}
	return cfg
}
