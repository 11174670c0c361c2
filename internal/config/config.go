// Package config resolves server settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order.
package config

import (
    "errors"
    "fmt"
    "io/fs"
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog"
    "gopkg.in/yaml.v3"
)

// Config holds everything the server and CLI need.
type Config struct {
    Addr              string        `yaml:"addr"`
    LogLevel          string        `yaml:"log_level"`
    LogPretty         bool          `yaml:"log_pretty"`
    StatsDB           string        `yaml:"stats_db"` // empty keeps tallies in memory
    GameTTL           time.Duration `yaml:"game_ttl"`
    PruneInterval     time.Duration `yaml:"prune_interval"`
    RequestTimeout    time.Duration `yaml:"request_timeout"`
    HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
    Seed              uint64        `yaml:"seed"` // 0 seeds from the runtime
}

// Default returns the built-in settings.
func Default() Config {
    return Config{
        Addr:              ":8080",
        LogLevel:          "info",
        GameTTL:           2 * time.Hour,
        PruneInterval:     5 * time.Minute,
        RequestTimeout:    10 * time.Second,
        HeartbeatInterval: 15 * time.Second,
    }
}

// Load builds a Config. yamlPath and dotenvPath may be empty; a missing
// dotenv file is not an error.
func Load(yamlPath, dotenvPath string) (Config, error) {
    cfg := Default()
    if yamlPath != "" {
        b, err := os.ReadFile(yamlPath)
        if err != nil {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.Unmarshal(b, &cfg); err != nil {
            return cfg, fmt.Errorf("parse config %s: %w", yamlPath, err)
        }
    }
    if dotenvPath != "" {
        if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
            return cfg, fmt.Errorf("load %s: %w", dotenvPath, err)
        }
    }
    if err := cfg.applyEnvOverrides(); err != nil {
        return cfg, err
    }
    return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() error {
    if v := os.Getenv("TTT_ADDR"); v != "" {
        c.Addr = v
    }
    if v := os.Getenv("TTT_LOG_LEVEL"); v != "" {
        c.LogLevel = v
    }
    if v := os.Getenv("TTT_LOG_PRETTY"); v != "" {
        b, err := strconv.ParseBool(v)
        if err != nil {
            return fmt.Errorf("TTT_LOG_PRETTY: %w", err)
        }
        c.LogPretty = b
    }
    if v := os.Getenv("TTT_STATS_DB"); v != "" {
        c.StatsDB = v
    }
    durations := []struct {
        key string
        dst *time.Duration
    }{
        {"TTT_GAME_TTL", &c.GameTTL},
        {"TTT_PRUNE_INTERVAL", &c.PruneInterval},
        {"TTT_REQUEST_TIMEOUT", &c.RequestTimeout},
        {"TTT_HEARTBEAT_INTERVAL", &c.HeartbeatInterval},
    }
    for _, d := range durations {
        v := os.Getenv(d.key)
        if v == "" {
            continue
        }
        parsed, err := time.ParseDuration(v)
        if err != nil {
            return fmt.Errorf("%s: %w", d.key, err)
        }
        *d.dst = parsed
    }
    if v := os.Getenv("TTT_SEED"); v != "" {
        n, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return fmt.Errorf("TTT_SEED: %w", err)
        }
        c.Seed = n
    }
    return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
    if c.Addr == "" {
        return errors.New("addr must not be empty")
    }
    if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
        return fmt.Errorf("log level: %w", err)
    }
    if c.GameTTL <= 0 || c.PruneInterval <= 0 {
        return fmt.Errorf("game_ttl and prune_interval must be positive (got %s, %s)", c.GameTTL, c.PruneInterval)
    }
    if c.RequestTimeout <= 0 || c.HeartbeatInterval <= 0 {
        return fmt.Errorf("request_timeout and heartbeat_interval must be positive (got %s, %s)", c.RequestTimeout, c.HeartbeatInterval)
    }
    return nil
}
