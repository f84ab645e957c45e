// Package config provides configuration loading for the simulation server:
// hard defaults, an optional YAML file, and environment overrides, in that
// order.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GetEnv returns the value of key from the environment, or defaultValue if
// unset or empty.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

// GetEnvDuration returns the duration for key, or defaultValue if
// unset/invalid.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvInt returns the integer for key, or defaultValue if unset/invalid.
func GetEnvInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return n
}

// ServerConfig holds configuration for the simulation server.
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	EventRetention   int
	PatchDelay       time.Duration
	OpponentCooldown time.Duration
	OpponentTick     time.Duration

	ProbeTimeout  time.Duration
	ProbeCacheTTL time.Duration

	CommandDelay time.Duration
	ScriptsFile  string

	NATSURL     string
	NATSSubject string
}

// fileConfig mirrors ServerConfig for the optional YAML config file.
// Durations are Go duration strings ("500ms", "10s").
type fileConfig struct {
	HTTPAddr         string `yaml:"http_addr"`
	ShutdownTimeout  string `yaml:"shutdown_timeout"`
	EventRetention   int    `yaml:"event_retention"`
	PatchDelay       string `yaml:"patch_delay"`
	OpponentCooldown string `yaml:"opponent_cooldown"`
	OpponentTick     string `yaml:"opponent_tick"`
	ProbeTimeout     string `yaml:"probe_timeout"`
	ProbeCacheTTL    string `yaml:"probe_cache_ttl"`
	CommandDelay     string `yaml:"command_delay"`
	ScriptsFile      string `yaml:"scripts_file"`
	NATSURL          string `yaml:"nats_url"`
	NATSSubject      string `yaml:"nats_subject"`
}

func baseServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:         ":3001",
		ShutdownTimeout:  30 * time.Second,
		EventRetention:   100,
		PatchDelay:       10 * time.Second,
		OpponentCooldown: 8 * time.Second,
		OpponentTick:     time.Second,
		ProbeTimeout:     500 * time.Millisecond,
		ProbeCacheTTL:    15 * time.Second,
		CommandDelay:     800 * time.Millisecond,
		ScriptsFile:      "",
		NATSURL:          "",
		NATSSubject:      "warsim.events",
	}
}

// LoadServerConfig builds the server configuration. The YAML file named by
// WARSIM_CONFIG (if any) overrides the defaults, and environment variables
// override both.
func LoadServerConfig() (ServerConfig, error) {
	cfg := baseServerConfig()

	if path := GetEnv("WARSIM_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, err
		}
		applyFile(&cfg, fc)
	}

	cfg.HTTPAddr = GetEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ShutdownTimeout = GetEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.EventRetention = GetEnvInt("EVENT_RETENTION", cfg.EventRetention)
	cfg.PatchDelay = GetEnvDuration("PATCH_DELAY", cfg.PatchDelay)
	cfg.OpponentCooldown = GetEnvDuration("OPPONENT_COOLDOWN", cfg.OpponentCooldown)
	cfg.OpponentTick = GetEnvDuration("OPPONENT_TICK", cfg.OpponentTick)
	cfg.ProbeTimeout = GetEnvDuration("PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.ProbeCacheTTL = GetEnvDuration("PROBE_CACHE_TTL", cfg.ProbeCacheTTL)
	cfg.CommandDelay = GetEnvDuration("COMMAND_DELAY", cfg.CommandDelay)
	cfg.ScriptsFile = GetEnv("SCRIPTS_FILE", cfg.ScriptsFile)
	cfg.NATSURL = GetEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = GetEnv("NATS_SUBJECT", cfg.NATSSubject)
	return cfg, nil
}

func applyFile(cfg *ServerConfig, fc fileConfig) {
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.EventRetention > 0 {
		cfg.EventRetention = fc.EventRetention
	}
	if fc.ScriptsFile != "" {
		cfg.ScriptsFile = fc.ScriptsFile
	}
	if fc.NATSURL != "" {
		cfg.NATSURL = fc.NATSURL
	}
	if fc.NATSSubject != "" {
		cfg.NATSSubject = fc.NATSSubject
	}
	applyDuration(&cfg.ShutdownTimeout, fc.ShutdownTimeout)
	applyDuration(&cfg.PatchDelay, fc.PatchDelay)
	applyDuration(&cfg.OpponentCooldown, fc.OpponentCooldown)
	applyDuration(&cfg.OpponentTick, fc.OpponentTick)
	applyDuration(&cfg.ProbeTimeout, fc.ProbeTimeout)
	applyDuration(&cfg.ProbeCacheTTL, fc.ProbeCacheTTL)
	applyDuration(&cfg.CommandDelay, fc.CommandDelay)
}

func applyDuration(dst *time.Duration, s string) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err == nil {
		*dst = d
	}
}
