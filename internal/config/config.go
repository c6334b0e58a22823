// Package config resolves the runtime configuration of Sercha Sync from
// defaults, the TOML config store, .env files and SERCHA_SYNC_* variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SERCHA_SYNC_"

// ErrUnknownKey is returned for keys that name no setting.
var ErrUnknownKey = errors.New("unknown config key")

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

// Queue drivers.
const (
	QueueMemory = "memory"
	QueueNATS   = "nats"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
	Queue   QueueConfig
	Blob    BlobConfig
	Sync    SyncConfig
	Log     LogConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// Secret signs and verifies HS256 tokens.
	Secret string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver        string
	DataDir       string
	MongoURI      string
	MongoDatabase string
}

// QueueConfig selects the job transport.
type QueueConfig struct {
	Driver      string
	NATSURL     string
	Stream      string
	Subject     string
	Durable     string
	Concurrency int
}

// BlobConfig locates downloaded content.
type BlobConfig struct {
	Dir string
}

// SyncConfig bounds a sync job.
type SyncConfig struct {
	MaxDocuments  int
	FetchTimeout  time.Duration
	SettleDelay   time.Duration
	StepAttempts  int
	RetryBackoff  time.Duration
	MaxDeliveries int
}

// LogConfig configures logging output.
type LogConfig struct {
	Verbose   bool
	File      string
	MaxSizeMB int
}

// Default returns the built-in configuration rooted at baseDir.
func Default(baseDir string) Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Driver:        StorageSQLite,
			DataDir:       filepath.Join(baseDir, "data"),
			MongoDatabase: "sercha_sync",
		},
		Queue: QueueConfig{
			Driver:      QueueMemory,
			NATSURL:     "nats://127.0.0.1:4222",
			Stream:      "SERCHA_SYNC_JOBS",
			Subject:     "sercha.sync.jobs",
			Durable:     "sercha-sync-worker",
			Concurrency: 4,
		},
		Blob: BlobConfig{Dir: filepath.Join(baseDir, "blobs")},
		Sync: SyncConfig{
			MaxDocuments:  1000,
			FetchTimeout:  60 * time.Second,
			SettleDelay:   2 * time.Second,
			StepAttempts:  3,
			RetryBackoff:  time.Second,
			MaxDeliveries: 4,
		},
		Log: LogConfig{MaxSizeMB: 50},
	}
}

// Load resolves configuration. store may be nil. Missing env files are ignored.
func Load(baseDir string, store driven.ConfigStore, envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Default(baseDir)
	if store != nil {
		if err := applyStore(&cfg, store); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	return validation.Errors{
		"server.addr":    validation.Validate(c.Server.Addr, validation.Required),
		"storage.driver": validation.Validate(c.Storage.Driver, validation.In(StorageMemory, StorageSQLite, StorageMongo)),
		"storage.mongo_uri": validation.Validate(c.Storage.MongoURI,
			validation.When(c.Storage.Driver == StorageMongo, validation.Required)),
		"queue.driver":        validation.Validate(c.Queue.Driver, validation.In(QueueMemory, QueueNATS)),
		"queue.concurrency":   validation.Validate(c.Queue.Concurrency, validation.Required, validation.Min(1)),
		"sync.max_documents":  validation.Validate(c.Sync.MaxDocuments, validation.Required, validation.Min(1)),
		"sync.step_attempts":  validation.Validate(c.Sync.StepAttempts, validation.Required, validation.Min(1)),
		"sync.max_deliveries": validation.Validate(c.Sync.MaxDeliveries, validation.Required, validation.Min(1)),
		"sync.fetch_timeout":  validation.Validate(c.Sync.FetchTimeout, validation.Required, validation.Min(time.Millisecond)),
		"sync.settle_delay":   validation.Validate(c.Sync.SettleDelay, validation.Min(time.Duration(0))),
		"sync.retry_backoff":  validation.Validate(c.Sync.RetryBackoff, validation.Min(time.Duration(0))),
		"log.max_size_mb":     validation.Validate(c.Log.MaxSizeMB, validation.Required, validation.Min(1)),
	}.Filter()
}

// fields maps dot-notation keys to the Config field they fill. Env names are
// derived from the key: "sync.max_documents" becomes
// SERCHA_SYNC_SYNC_MAX_DOCUMENTS.
var fields = map[string]func(c *Config) any{
	"server.addr":         func(c *Config) any { return &c.Server.Addr },
	"server.cors_origins": func(c *Config) any { return &c.Server.CORSOrigins },
	"auth.secret":         func(c *Config) any { return &c.Auth.Secret },
	"storage.driver":      func(c *Config) any { return &c.Storage.Driver },
	"storage.data_dir":    func(c *Config) any { return &c.Storage.DataDir },
	"storage.mongo_uri":   func(c *Config) any { return &c.Storage.MongoURI },
	"storage.mongo_db":    func(c *Config) any { return &c.Storage.MongoDatabase },
	"queue.driver":        func(c *Config) any { return &c.Queue.Driver },
	"queue.nats_url":      func(c *Config) any { return &c.Queue.NATSURL },
	"queue.stream":        func(c *Config) any { return &c.Queue.Stream },
	"queue.subject":       func(c *Config) any { return &c.Queue.Subject },
	"queue.durable":       func(c *Config) any { return &c.Queue.Durable },
	"queue.concurrency":   func(c *Config) any { return &c.Queue.Concurrency },
	"blob.dir":            func(c *Config) any { return &c.Blob.Dir },
	"sync.max_documents":  func(c *Config) any { return &c.Sync.MaxDocuments },
	"sync.fetch_timeout":  func(c *Config) any { return &c.Sync.FetchTimeout },
	"sync.settle_delay":   func(c *Config) any { return &c.Sync.SettleDelay },
	"sync.step_attempts":  func(c *Config) any { return &c.Sync.StepAttempts },
	"sync.retry_backoff":  func(c *Config) any { return &c.Sync.RetryBackoff },
	"sync.max_deliveries": func(c *Config) any { return &c.Sync.MaxDeliveries },
	"log.verbose":         func(c *Config) any { return &c.Log.Verbose },
	"log.file":            func(c *Config) any { return &c.Log.File },
	"log.max_size_mb":     func(c *Config) any { return &c.Log.MaxSizeMB },
}

// secretKeys are masked when listed.
var secretKeys = map[string]bool{
	"auth.secret":       true,
	"storage.mongo_uri": true,
}

// Keys lists every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return secretKeys[key]
}

// Set parses raw into the field named by key. Lists are comma separated.
func (c *Config) Set(key, raw string) error {
	field, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	switch p := field(c).(type) {
	case *string:
		*p = raw
	case *int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, raw)
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", key, raw)
		}
		*p = b
	case *time.Duration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %q is not a duration", key, raw)
		}
		*p = d
	case *[]string:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				out = append(out, v)
			}
		}
		*p = out
	}
	return nil
}

// Get formats the field named by key the way Set accepts it.
func (c Config) Get(key string) (string, error) {
	field, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	switch p := field(&c).(type) {
	case *string:
		return *p, nil
	case *int:
		return strconv.Itoa(*p), nil
	case *bool:
		return strconv.FormatBool(*p), nil
	case *time.Duration:
		return p.String(), nil
	case *[]string:
		return strings.Join(*p, ","), nil
	}
	return "", nil
}

// StoredValue parses raw for key and returns the value to persist in a
// ConfigStore: integers and booleans keep their TOML type, durations are
// stored as strings and lists as string arrays.
func StoredValue(key, raw string) (any, error) {
	var scratch Config
	if err := scratch.Set(key, raw); err != nil {
		return nil, err
	}
	switch p := fields[key](&scratch).(type) {
	case *int:
		return int64(*p), nil
	case *bool:
		return *p, nil
	case *time.Duration:
		return p.String(), nil
	case *[]string:
		return *p, nil
	case *string:
		return *p, nil
	}
	return raw, nil
}

func applyStore(c *Config, store driven.ConfigStore) error {
	for _, key := range Keys() {
		raw, ok := store.Get(key)
		if !ok {
			continue
		}
		if err := c.Set(key, storedString(raw)); err != nil {
			return fmt.Errorf("config %w", err)
		}
	}
	return nil
}

// storedString renders a decoded TOML value for Set.
func storedString(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		v, ok := lookup(EnvName(key))
		if !ok {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("env %s: %w", EnvName(key), err)
		}
	}
	return nil
}
