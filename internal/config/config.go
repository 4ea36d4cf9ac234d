// Package config loads process settings from flags and the environment.
package config

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr            string
	AllowedOrigins  []string
	RedisAddr       string
	LastSeenTTL     time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	HistoryLimit    int
	DefaultRoom     string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

func Default() Config {
	return Config{
		Addr:            ":3001",
		AllowedOrigins:  []string{"http://localhost:5173"},
		LastSeenTTL:     30 * 24 * time.Hour,
		MaxMessageSize:  4096,
		SendBuffer:      256,
		HistoryLimit:    100,
		DefaultRoom:     "general",
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the environment through getenv, then lets -addr override ADDR.
// Bad values fall back to defaults rather than failing startup.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("ADDR"); v != "" {
		cfg.Addr = v
	} else if v := getenv("PORT"); v != "" {
		cfg.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = parseList(v)
	}
	cfg.RedisAddr = strings.TrimSpace(getenv("REDIS_ADDR"))
	if v := getenv("LAST_SEEN_TTL"); v != "" {
		cfg.LastSeenTTL = parseDuration(v, cfg.LastSeenTTL)
	}
	if v := getenv("MAX_MESSAGE_SIZE"); v != "" {
		cfg.MaxMessageSize = int64(parsePositive(v, int(cfg.MaxMessageSize)))
	}
	if v := getenv("SEND_BUFFER"); v != "" {
		cfg.SendBuffer = parsePositive(v, cfg.SendBuffer)
	}
	if v := getenv("ROOM_HISTORY_LIMIT"); v != "" {
		cfg.HistoryLimit = parsePositive(v, cfg.HistoryLimit)
	}
	if v := strings.TrimSpace(getenv("DEFAULT_ROOM")); v != "" {
		cfg.DefaultRoom = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLevel(v, cfg.LogLevel)
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		cfg.ShutdownTimeout = parseDuration(v, cfg.ShutdownTimeout)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load over the real process arguments and environment.
func FromEnv() (Config, error) {
	return Load(os.Args[1:], os.Getenv)
}

func parseList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositive(v string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		return n
	}
	return def
}

// parseDuration accepts Go durations ("15s") or a bare number of seconds.
func parseDuration(v string, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func parseLevel(v string, def slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return def
	}
	return lvl
}
