// Package config loads CLI configuration from an optional tabula.yaml, an
// optional .env file and TABULA_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/tabula/internal/logging"
	"github.com/aretw0/tabula/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "tabula.yaml"

// Engine kinds.
const (
	EngineLocal   = "local"
	EngineProcess = "process"
	EngineHTTP    = "http"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the full CLI configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Serve  ServeConfig  `yaml:"serve" mapstructure:"serve"`
}

// EngineConfig selects where Engine Calls go.
type EngineConfig struct {
	// Kind is local, process or http.
	Kind    string   `yaml:"kind" mapstructure:"kind"`
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
	URL     string   `yaml:"url" mapstructure:"url"`
	// Timeout bounds a single call to an http engine.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoreConfig selects where sessions are persisted.
type StoreConfig struct {
	Kind        string        `yaml:"kind" mapstructure:"kind"`
	Path        string        `yaml:"path" mapstructure:"path"`
	RedisAddr   string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	PostgresDSN string        `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// EncryptionKey enables at-rest encryption of stored sessions when set.
	// FallbackKeys still decrypt sessions written under previous keys.
	EncryptionKey string   `yaml:"encryption_key" mapstructure:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" mapstructure:"fallback_keys"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

type ServeConfig struct {
	Port int    `yaml:"port" mapstructure:"port"`
	Dir  string `yaml:"dir" mapstructure:"dir"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Engine: EngineConfig{Kind: EngineLocal, Timeout: 60 * time.Second},
		Store:  StoreConfig{Kind: StoreFile, Path: ".tabula/sessions"},
		Log:    LogConfig{Level: "warn"},
		Serve:  ServeConfig{Port: 8000, Dir: "."},
	}
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string][2]string{
	"TABULA_ENGINE_KIND":    {"engine", "kind"},
	"TABULA_ENGINE_COMMAND": {"engine", "command"},
	"TABULA_ENGINE_ARGS":    {"engine", "args"},
	"TABULA_ENGINE_URL":     {"engine", "url"},
	"TABULA_ENGINE_TIMEOUT": {"engine", "timeout"},
	"TABULA_STORE_KIND":     {"store", "kind"},
	"TABULA_STORE_PATH":     {"store", "path"},
	"TABULA_STORE_TTL":      {"store", "ttl"},
	"TABULA_REDIS_ADDR":     {"store", "redis_addr"},
	"TABULA_POSTGRES_DSN":   {"store", "postgres_dsn"},
	"TABULA_LOG_LEVEL":      {"log", "level"},
	"TABULA_SERVE_PORT":     {"serve", "port"},
	"TABULA_SERVE_DIR":      {"serve", "dir"},

	"TABULA_STORE_ENCRYPTION_KEY": {"store", "encryption_key"},
	"TABULA_STORE_FALLBACK_KEYS":  {"store", "fallback_keys"},
}

// Load builds the configuration.
// An empty path means DefaultFile, which may be absent; an explicit path must exist.
// A .env file next to the config file is loaded before the environment is read
// and never overrides variables that are already set.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()

	raw, err := readFile(path, explicit)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := decode(raw, &cfg, true); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	if err := decode(fromEnv(), &cfg, false); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func readFile(path string, explicit bool) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func fromEnv() map[string]any {
	raw := map[string]any{}
	for name, key := range envKeys {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		section, ok := raw[key[0]].(map[string]any)
		if !ok {
			section = map[string]any{}
			raw[key[0]] = section
		}
		section[key[1]] = value
	}
	return raw
}

// decode merges raw onto cfg; keys missing from raw keep their current values.
func decode(raw map[string]any, cfg *Config, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Engine.Kind {
	case EngineLocal:
	case EngineProcess:
		if c.Engine.Command == "" {
			errs = append(errs, errors.New("engine.command is required for a process engine"))
		}
	case EngineHTTP:
		if c.Engine.URL == "" {
			errs = append(errs, errors.New("engine.url is required for an http engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine.kind %q", c.Engine.Kind))
	}
	if c.Engine.Timeout < 0 {
		errs = append(errs, errors.New("engine.timeout must be non-negative"))
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for a file store"))
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for a redis store"))
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for a postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.kind %q", c.Store.Kind))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("store.ttl must be non-negative"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	} else if len(c.Store.FallbackKeys) > 0 {
		errs = append(errs, errors.New("store.fallback_keys requires store.encryption_key"))
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys[%d]: %w", i, err))
		}
	}

	if _, _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port (%d) must be 1-65535", c.Serve.Port))
	}

	return errors.Join(errs...)
}
