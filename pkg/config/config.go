// Package config loads lanscout configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file.
const (
	EnvLogLevel  = "LANSCOUT_LOG_LEVEL"
	EnvLogFormat = "LANSCOUT_LOG_FORMAT"
	EnvListen    = "LANSCOUT_LISTEN"
	EnvDB        = "LANSCOUT_DB"
	EnvSchedule  = "LANSCOUT_SCHEDULE"
)

// Config is the top-level configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	MDNS      MDNSConfig      `yaml:"mdns"`
	Scan      ScanConfig      `yaml:"scan"`
	SNMP      SNMPConfig      `yaml:"snmp"`
	Manual    ManualConfig    `yaml:"manual"`
	Serial    SerialConfig    `yaml:"serial"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type APIConfig struct {
	Listen string `yaml:"listen"`
}

type DatabaseConfig struct {
	// Path of the SQLite file. Empty selects the user config directory.
	Path string `yaml:"path"`
}

// DiscoveryConfig holds the service and queue settings.
type DiscoveryConfig struct {
	Strategy       discovery.Strategy `yaml:"strategy"`
	DefaultTimeout time.Duration      `yaml:"default_timeout"`
	Learning       bool               `yaml:"learning"`
	Debounce       time.Duration      `yaml:"debounce"`
	CacheTTL       time.Duration      `yaml:"cache_ttl"`
	MaxCacheSize   int                `yaml:"max_cache_size"`
	// Schedule is a cron expression for periodic discovery. Empty disables it.
	Schedule string             `yaml:"schedule"`
	Methods  []discovery.Method `yaml:"methods"`
}

type MDNSConfig struct {
	Services  []string `yaml:"services"`
	Domain    string   `yaml:"domain"`
	Interface string   `yaml:"interface"`
}

type ScanConfig struct {
	Subnets      []string `yaml:"subnets"`
	Ports        []int    `yaml:"ports"`
	Concurrency  int      `yaml:"concurrency"`
	ResolveNames bool     `yaml:"resolve_names"`
}

type SNMPConfig struct {
	Targets     []string `yaml:"targets"`
	Subnets     []string `yaml:"subnets"`
	Community   string   `yaml:"community"`
	Port        uint16   `yaml:"port"`
	Concurrency int      `yaml:"concurrency"`
}

type ManualConfig struct {
	Addresses         []string          `yaml:"addresses"`
	HardwareAddresses map[string]string `yaml:"hardware_addresses"`
}

type SerialConfig struct {
	USBOnly        bool `yaml:"usb_only"`
	Probe          bool `yaml:"probe"`
	BaudRate       int  `yaml:"baud_rate"`
	IdentifyZigbee bool `yaml:"identify_zigbee"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	svc := discovery.DefaultServiceConfig()
	q := discovery.DefaultQueueConfig()
	return Config{
		Log:      LogConfig{Level: "info", Format: "console"},
		API:      APIConfig{Listen: ":8080"},
		Discovery: DiscoveryConfig{
			Strategy:       q.Strategy,
			DefaultTimeout: q.DefaultTimeout,
			Learning:       q.LearningEnabled,
			Debounce:       svc.Debounce,
			CacheTTL:       svc.CacheTTL,
			MaxCacheSize:   svc.MaxCacheSize,
			Methods:        q.Methods,
		},
		MDNS:   MDNSConfig{Domain: "local."},
		SNMP:   SNMPConfig{Community: "public", Port: 161},
		Serial: SerialConfig{USBOnly: true, BaudRate: 115200},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.API.Listen = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv(EnvSchedule); ok {
		c.Discovery.Schedule = v
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	if _, perr := zerolog.ParseLevel(c.Log.Level); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", perr))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		err = multierr.Append(err, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if c.Discovery.DefaultTimeout < 0 {
		err = multierr.Append(err, errors.New("discovery.default_timeout: must not be negative"))
	}
	if c.Discovery.Debounce < 0 {
		err = multierr.Append(err, errors.New("discovery.debounce: must not be negative"))
	}
	if c.Discovery.CacheTTL != 0 && c.Discovery.CacheTTL < discovery.MinCacheTTL {
		err = multierr.Append(err, fmt.Errorf("discovery.cache_ttl: must be at least %s", discovery.MinCacheTTL))
	}
	if c.Discovery.MaxCacheSize < 0 {
		err = multierr.Append(err, errors.New("discovery.max_cache_size: must not be negative"))
	}

	seen := make(map[string]bool)
	for i, m := range c.Discovery.Methods {
		switch {
		case m.Name == "":
			err = multierr.Append(err, fmt.Errorf("discovery.methods[%d]: name required", i))
		case seen[m.Name]:
			err = multierr.Append(err, fmt.Errorf("discovery.methods[%d]: duplicate method %q", i, m.Name))
		}
		seen[m.Name] = true
		if m.Priority < 1 || m.Priority > 10 {
			err = multierr.Append(err, fmt.Errorf("discovery.methods[%d]: priority must be 1-10", i))
		}
		if m.Retries < 0 {
			err = multierr.Append(err, fmt.Errorf("discovery.methods[%d]: retries must not be negative", i))
		}
	}
	return err
}

// ServiceConfig returns the discovery service settings.
func (c Config) ServiceConfig() discovery.ServiceConfig {
	return discovery.ServiceConfig{
		Debounce:     c.Discovery.Debounce,
		CacheTTL:     c.Discovery.CacheTTL,
		MaxCacheSize: c.Discovery.MaxCacheSize,
	}
}

// QueueConfig returns the method queue settings.
func (c Config) QueueConfig() discovery.QueueConfig {
	return discovery.QueueConfig{
		Strategy:        c.Discovery.Strategy,
		DefaultTimeout:  c.Discovery.DefaultTimeout,
		LearningEnabled: c.Discovery.Learning,
		Methods:         c.Discovery.Methods,
	}
}

// SetupLogging configures the global zerolog logger. Console output goes to
// stderr so stdout stays free for the MCP transport.
func (c Config) SetupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(c.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if c.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
