package kafka

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration for a Streams client.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// ApplicationID identifies the stream processing application.
	// It is the consumer group id, the state directory name and the prefix of the client id.
	ApplicationID string `yaml:"applicationId"`

	// ClientID is the client identity. Defaults to "<ApplicationID>-<processId>".
	ClientID string `yaml:"clientId"`

	// NumWorkers is the number of workers created at construction.
	// Workers can be added and removed at runtime.
	NumWorkers int `yaml:"numWorkers"`

	// CacheMaxBytes is the total record cache budget shared by all workers.
	CacheMaxBytes int64 `yaml:"cacheMaxBytes"`

	// InputBufferMaxBytes is the total input buffer budget shared by all workers.
	InputBufferMaxBytes int64 `yaml:"inputBufferMaxBytes"`

	// StateDir is the root directory of local state.
	StateDir string `yaml:"stateDir"`

	// StateCleanupDelay is both the interval of the state directory cleaner and
	// the minimum idle time before an unused task directory is deleted.
	StateCleanupDelay time.Duration `yaml:"stateCleanupDelay"`

	// MetricsRecordingInterval is the interval of periodic metrics sampling.
	// A negative value disables sampling.
	MetricsRecordingInterval time.Duration `yaml:"metricsRecordingInterval"`

	// BootstrapServers are the brokers of the default admin client.
	// Required unless an admin is supplied with WithAdmin.
	BootstrapServers []string `yaml:"bootstrapServers"`

	// MetricsNamespace is the namespace of Prometheus metrics created by NewPrometheusMetrics.
	MetricsNamespace string `yaml:"metricsNamespace"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// ApplicationID has no default and must be set.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		NumWorkers:               1,
		CacheMaxBytes:            10 * 1024 * 1024,
		InputBufferMaxBytes:      512 * 1024 * 1024,
		StateDir:                 filepath.Join(os.TempDir(), "kafka-streams"),
		StateCleanupDelay:        10 * time.Minute,
		MetricsRecordingInterval: time.Minute,
		MetricsNamespace:         "kafka_streams",
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = defaults.NumWorkers
	}
	if cfg.CacheMaxBytes == 0 {
		cfg.CacheMaxBytes = defaults.CacheMaxBytes
	}
	if cfg.InputBufferMaxBytes == 0 {
		cfg.InputBufferMaxBytes = defaults.InputBufferMaxBytes
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaults.StateDir
	}
	if cfg.StateCleanupDelay == 0 {
		cfg.StateCleanupDelay = defaults.StateCleanupDelay
	}
	if cfg.MetricsRecordingInterval == 0 {
		cfg.MetricsRecordingInterval = defaults.MetricsRecordingInterval
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = defaults.MetricsNamespace
	}
}

// Validate checks the configuration for consistency.
//
// Returns:
//   - error: The first violated rule, wrapping ErrInvalidConfig
func (cfg *Config) Validate() error {
	// Rule 1: application id
	if cfg.ApplicationID == "" {
		return fmt.Errorf("%w: ApplicationID is required", ErrInvalidConfig)
	}

	// Rule 2: worker count
	if cfg.NumWorkers < 0 {
		return fmt.Errorf("%w: NumWorkers must be >= 0, got %d", ErrInvalidConfig, cfg.NumWorkers)
	}

	// Rule 3: budgets
	if cfg.CacheMaxBytes < 0 {
		return fmt.Errorf("%w: CacheMaxBytes must be >= 0, got %d", ErrInvalidConfig, cfg.CacheMaxBytes)
	}
	if cfg.InputBufferMaxBytes < 0 {
		return fmt.Errorf("%w: InputBufferMaxBytes must be >= 0, got %d", ErrInvalidConfig, cfg.InputBufferMaxBytes)
	}

	// Rule 4: cleaner interval
	if cfg.StateCleanupDelay <= 0 {
		return fmt.Errorf("%w: StateCleanupDelay must be > 0, got %v", ErrInvalidConfig, cfg.StateCleanupDelay)
	}

	return nil
}

// ValidateWithWarnings logs warnings for non-recommended values.
//
// This is called after Validate() in NewStreams() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.NumWorkers > 0 && cfg.InputBufferMaxBytes/int64(cfg.NumWorkers) < 1024*1024 {
		logger.Warn(
			"input buffer per worker is below 1MiB",
			"inputBufferMaxBytes", cfg.InputBufferMaxBytes,
			"numWorkers", cfg.NumWorkers,
		)
	}

	if cfg.StateCleanupDelay < time.Minute {
		logger.Warn(
			"StateCleanupDelay is very short, task directories may be deleted while being reassigned",
			"stateCleanupDelay", cfg.StateCleanupDelay,
			"recommended", "10m",
		)
	}
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: Path of the YAML file
//
// Returns:
//   - Config: Loaded configuration with defaults applied
//   - error: Read, parse or validation error
//
// Example:
//
//	cfg, err := kafka.LoadConfig("/etc/streams/config.yaml")
//	if err != nil { /* handle */ }
//	streams, err := kafka.NewStreams(&cfg, topo, factory)
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, path, err)
	}
	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// TestConfig returns a configuration suited for tests.
//
// The state directory lives under the OS temp dir and the budget is small.
//
// Example:
//
//	cfg := kafka.TestConfig()
//	cfg.StateDir = t.TempDir()
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.ApplicationID = "test-app"
	cfg.CacheMaxBytes = 1000
	cfg.InputBufferMaxBytes = 600
	cfg.StateCleanupDelay = time.Minute
	cfg.MetricsRecordingInterval = -1

	return cfg
}
