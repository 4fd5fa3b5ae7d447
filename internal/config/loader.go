package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// Loader loads configuration from environment variables (prefix
// CAPTURECTL_) and an optional YAML file, matching the teacher's
// ConfigLoader shape in internal/config/loader.go.
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a Loader with environment binding configured.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CAPTURECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{viper: v}
}

// Load reads configPath (if non-empty and present), applies defaults, and
// unmarshals + validates the result. A missing file is not an error: the
// system falls back to defaults and environment overrides, matching the
// teacher's "configuration file not found, using defaults" posture.
func (l *Loader) Load(configPath string) (*Config, error) {
	l.setDefaults()

	if configPath != "" {
		l.viper.SetConfigFile(configPath)
		if err := l.viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, apperrors.Config("Loader.Load", "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Config("Loader.Load", "failed to unmarshal config", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Viper exposes the underlying instance for advanced use (e.g. the hot
// reload watcher re-reading the same defaults).
func (l *Loader) Viper() *viper.Viper {
	return l.viper
}

func (l *Loader) setDefaults() {
	l.viper.SetDefault("server.host", "0.0.0.0")
	l.viper.SetDefault("server.port", 8080)
	l.viper.SetDefault("server.observability_port", 9090)

	l.viper.SetDefault("http_health.enabled", true)
	l.viper.SetDefault("http_health.host", "0.0.0.0")
	l.viper.SetDefault("http_health.port", 8003)
	l.viper.SetDefault("http_health.read_timeout", "5s")
	l.viper.SetDefault("http_health.write_timeout", "5s")
	l.viper.SetDefault("http_health.idle_timeout", "30s")
	l.viper.SetDefault("http_health.basic_endpoint", "/health")
	l.viper.SetDefault("http_health.detailed_endpoint", "/health/detailed")
	l.viper.SetDefault("http_health.ready_endpoint", "/health/ready")
	l.viper.SetDefault("http_health.live_endpoint", "/health/live")

	l.viper.SetDefault("database.path", "./data/capturectl.db")
	l.viper.SetDefault("database.pool_size", 10)
	l.viper.SetDefault("database.wal_enabled", true)

	l.viper.SetDefault("security.argon2.memory_cost", 19456)
	l.viper.SetDefault("security.argon2.time_cost", 2)
	l.viper.SetDefault("security.argon2.parallelism", 1)

	l.viper.SetDefault("features.enable_rtsp", false)
	l.viper.SetDefault("features.enable_ai", false)

	l.viper.SetDefault("storage.local_root", "./data/artifacts")
	l.viper.SetDefault("storage.warn_percent", 80)
	l.viper.SetDefault("storage.block_percent", 95)

	l.viper.SetDefault("update.check_interval_seconds", 3600)
	l.viper.SetDefault("update.binary_name", "capturectl")
	l.viper.SetDefault("update.install_dir", "/opt/capturectl")

	l.viper.SetDefault("retention.type", "age")
	l.viper.SetDefault("retention.max_age_days", 30)
	l.viper.SetDefault("retention.keep_n_most_recent", 100)

	l.viper.SetDefault("logging.level", "info")
	l.viper.SetDefault("logging.format", "text")
	l.viper.SetDefault("logging.file_enabled", true)
	l.viper.SetDefault("logging.file_path", "./logs/capturectl.log")
	l.viper.SetDefault("logging.max_file_size", 10485760)
	l.viper.SetDefault("logging.backup_count", 5)
	l.viper.SetDefault("logging.console_enabled", true)

	l.viper.SetDefault("breaker.failure_threshold", 5)
	l.viper.SetDefault("breaker.success_threshold", 2)
	l.viper.SetDefault("breaker.recovery_timeout_sec", 30)

	l.viper.SetDefault("scheduler.max_jitter_ms", 5000)

	l.viper.SetDefault("streaming.subscriber_buffer_size", 8)

	l.viper.SetDefault("capture.snapshot_permits", 10)
	l.viper.SetDefault("capture.process_termination_timeout_sec", 3.0)
	l.viper.SetDefault("capture.process_kill_timeout_sec", 2.0)
}
