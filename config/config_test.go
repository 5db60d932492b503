package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENGINE_DEPTH", "ENGINE_PONDER", "ENGINE_PONDER_DEPTH", "LOG_LEVEL", "LOG_STYLE", "SERVER_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.Depth != DefaultDepth || !cfg.Engine.Ponder || cfg.Engine.PonderDepth != DefaultDepth {
		t.Fatalf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Logs.Level != "info" || cfg.Logs.Style != "console" || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENGINE_DEPTH", "5")
	t.Setenv("ENGINE_PONDER", "false")
	t.Setenv("LOG_STYLE", "json")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9000")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.Depth != 5 || cfg.Engine.Ponder || cfg.Engine.PonderDepth != 5 {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Logs.Style != "json" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("ENGINE_PONDER_DEPTH", "2")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.PonderDepth != 2 {
		t.Fatalf("expected ponder depth 2, got %d", cfg.Engine.PonderDepth)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"ENGINE_DEPTH":        "deep",
		"ENGINE_PONDER":       "maybe",
		"ENGINE_PONDER_DEPTH": "0",
	}
	for key, val := range cases {
		clearEnv(t)
		t.Setenv(key, val)
		if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("%s=%s: expected an error naming the variable, got %v", key, val, err)
		}
	}
	clearEnv(t)
	t.Setenv("ENGINE_DEPTH", "99")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected depth out of range error")
	}
}

func TestSetupLogging(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	var buf bytes.Buffer
	if err := SetupLogging(LogConfig{Style: "json", Level: "debug"}, &buf); err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	log.Debug().Str("fen", "startpos").Msg("hello")
	if !strings.Contains(buf.String(), `"fen":"startpos"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}

	buf.Reset()
	if err := SetupLogging(LogConfig{Style: "json", Level: "warn"}, &buf); err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	log.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	if err := SetupLogging(LogConfig{Style: "fancy", Level: "info"}, &buf); err == nil {
		t.Fatalf("expected unknown style error")
	}
	if err := SetupLogging(LogConfig{Style: "json", Level: "loud"}, &buf); err == nil {
		t.Fatalf("expected bad level error")
	}
}
