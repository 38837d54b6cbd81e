// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the saginctl process.
type Config struct {
	App     AppConfig     `koanf:"app"`
	HTTP    HTTPConfig    `koanf:"http"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Audit   AuditConfig   `koanf:"audit"`
	Sim     SimConfig     `koanf:"sim"`
}

// AppConfig holds process-wide identity settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig configures the thin request/scan/stats adapter.
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures structured logging and file rotation.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // path for file output
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // retained backups
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"` // OTLP/HTTP collector address, host:port
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// StoreConfig configures the Postgres-backed orbital-state and
// aggregator-row repositories (§4.3, §4.8).
type StoreConfig struct {
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns a libpq-style connection string.
func (d StoreConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig configures the planner-result cache backend (§4.5).
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // in-memory cap
}

// Address returns the cache backend's host:port.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuditConfig configures the allocation/release ledger (pkg/audit).
type AuditConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Backend     string        `koanf:"backend"` // stdout, file, noop
	FilePath    string        `koanf:"file_path"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
}

// SimConfig configures the routing environment and request pipeline.
type SimConfig struct {
	TopologyPath       string        `koanf:"topology_path"` // node/orbit seed file
	MaxStepsPerHop     int           `koanf:"max_steps_per_hop"`
	PropagationPeriod  time.Duration `koanf:"propagation_period"`
	NormalAdmission    float64       `koanf:"normal_admission"`    // 0.90
	EmergencyAdmission float64       `koanf:"emergency_admission"` // 0.95
	HopPenalty         float64       `koanf:"hop_penalty"`         // 0.35 per DESIGN.md resolution #4
	RequestIntervalMin time.Duration `koanf:"request_interval_min"`
	RequestIntervalMax time.Duration `koanf:"request_interval_max"`
	StatsLogPath       string        `koanf:"stats_log_path"`
	StatsExportPath    string        `koanf:"stats_export_path"` // xlsx report destination
	StatsBatchSize     int           `koanf:"stats_batch_size"`  // requests per time-series batch, §4.8 default 50
}

// Validate checks invariants that would otherwise surface as confusing
// runtime errors deep inside the routing environment or pipeline.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Sim.NormalAdmission <= 0 || c.Sim.NormalAdmission > 1 {
		errs = append(errs, fmt.Sprintf("sim.normal_admission must be in (0,1], got %f", c.Sim.NormalAdmission))
	}
	if c.Sim.EmergencyAdmission <= 0 || c.Sim.EmergencyAdmission > 1 {
		errs = append(errs, fmt.Sprintf("sim.emergency_admission must be in (0,1], got %f", c.Sim.EmergencyAdmission))
	}
	if c.Sim.EmergencyAdmission < c.Sim.NormalAdmission {
		errs = append(errs, "sim.emergency_admission must not be lower than sim.normal_admission")
	}
	if c.Sim.MaxStepsPerHop <= 0 {
		errs = append(errs, "sim.max_steps_per_hop must be positive")
	}
	if c.Sim.StatsBatchSize <= 0 {
		c.Sim.StatsBatchSize = 50
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the environment is development-like.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
