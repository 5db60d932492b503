package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Logs   LogConfig
	Engine EngineConfig
	Server ServerConfig
}

type LogConfig struct {
	Style string // console or json
	Level string
}

type EngineConfig struct {
	Depth       int
	Ponder      bool
	PonderDepth int
}

type ServerConfig struct {
	Addr string
}

const (
	DefaultDepth = 3
	MaxDepth     = 12
)

// LoadConfig reads the environment. Unset variables take their defaults;
// malformed ones are reported.
func LoadConfig() (*Config, error) {
	depth, err := intEnv("ENGINE_DEPTH", DefaultDepth)
	if err != nil {
		return nil, err
	}
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("ENGINE_DEPTH: %d out of range 1..%d", depth, MaxDepth)
	}

	ponder, err := boolEnv("ENGINE_PONDER", true)
	if err != nil {
		return nil, err
	}

	ponderDepth, err := intEnv("ENGINE_PONDER_DEPTH", depth)
	if err != nil {
		return nil, err
	}
	if ponderDepth < 1 || ponderDepth > MaxDepth {
		return nil, fmt.Errorf("ENGINE_PONDER_DEPTH: %d out of range 1..%d", ponderDepth, MaxDepth)
	}

	cfg := &Config{
		Logs: LogConfig{
			Style: strEnv("LOG_STYLE", "console"),
			Level: strEnv("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			Depth:       depth,
			Ponder:      ponder,
			PonderDepth: ponderDepth,
		},
		Server: ServerConfig{
			Addr: strEnv("SERVER_ADDR", ":8080"),
		},
	}
	return cfg, nil
}

// SetupLogging points the global zerolog logger at w.
func SetupLogging(c LogConfig, w io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	switch strings.ToLower(c.Style) {
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case "console", "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	default:
		return fmt.Errorf("LOG_STYLE: unknown style %q", c.Style)
	}
	return nil
}

func strEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("converting %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
