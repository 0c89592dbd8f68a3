package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Network NetworkConfig `yaml:"network"`
	Logging LoggingConfig `yaml:"logging"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Listen  ListenConfig  `yaml:"listen"`
}

// StoreConfig selects where the device list is persisted.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Key         string `yaml:"key"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// NetworkConfig contains outgoing packet settings.
type NetworkConfig struct {
	Interface   string `yaml:"interface"`
	TTL         int    `yaml:"ttl"`
	DefaultPort int    `yaml:"default_port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// MQTTConfig contains MQTT bridge settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ListenConfig contains monitor mode settings.
type ListenConfig struct {
	Port int `yaml:"port"`
}

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Load reads configuration from a YAML file over the defaults, applies
// environment overrides and validates the result. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     BackendSQLite,
			Path:        "./data/wakeonlan.db",
			Key:         "devices",
			BusyTimeout: 5,
		},
		Network: NetworkConfig{
			TTL:         64,
			DefaultPort: 9,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "file",
			File:   "wakeonlan.log",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wakeonlan",
			},
			QoS:         1,
			TopicPrefix: "wakeonlan",
		},
		Listen: ListenConfig{
			Port: 9,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the YAML path: WAKEONLAN_SECTION_KEY, with
// nested sections joined the same way (WAKEONLAN_MQTT_BROKER_HOST).
// Values that do not parse as the field's type are ignored.
func applyEnvOverrides(cfg *Config) {
	// Store
	envString("WAKEONLAN_STORE_BACKEND", &cfg.Store.Backend)
	envString("WAKEONLAN_STORE_PATH", &cfg.Store.Path)
	envString("WAKEONLAN_STORE_KEY", &cfg.Store.Key)
	envInt("WAKEONLAN_STORE_BUSY_TIMEOUT", &cfg.Store.BusyTimeout)

	// Network
	envString("WAKEONLAN_NETWORK_INTERFACE", &cfg.Network.Interface)
	envInt("WAKEONLAN_NETWORK_TTL", &cfg.Network.TTL)
	envInt("WAKEONLAN_NETWORK_DEFAULT_PORT", &cfg.Network.DefaultPort)

	// Logging
	envString("WAKEONLAN_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("WAKEONLAN_LOGGING_FORMAT", &cfg.Logging.Format)
	envString("WAKEONLAN_LOGGING_OUTPUT", &cfg.Logging.Output)
	envString("WAKEONLAN_LOGGING_FILE", &cfg.Logging.File)

	// MQTT
	envBool("WAKEONLAN_MQTT_ENABLED", &cfg.MQTT.Enabled)
	envString("WAKEONLAN_MQTT_BROKER_HOST", &cfg.MQTT.Broker.Host)
	envInt("WAKEONLAN_MQTT_BROKER_PORT", &cfg.MQTT.Broker.Port)
	envBool("WAKEONLAN_MQTT_BROKER_TLS", &cfg.MQTT.Broker.TLS)
	envString("WAKEONLAN_MQTT_BROKER_CLIENT_ID", &cfg.MQTT.Broker.ClientID)
	envString("WAKEONLAN_MQTT_AUTH_USERNAME", &cfg.MQTT.Auth.Username)
	envString("WAKEONLAN_MQTT_AUTH_PASSWORD", &cfg.MQTT.Auth.Password)
	envInt("WAKEONLAN_MQTT_QOS", &cfg.MQTT.QoS)
	envString("WAKEONLAN_MQTT_TOPIC_PREFIX", &cfg.MQTT.TopicPrefix)

	// Listen
	envInt("WAKEONLAN_LISTEN_PORT", &cfg.Listen.Port)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Backend {
	case BackendSQLite, BackendFile:
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required")
		} else if dir := c.StoreDir(); !writable(dir) {
			errs = append(errs, fmt.Sprintf("store directory is not writable: %v", dir))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be sqlite, file or memory, got %q", c.Store.Backend))
	}
	if c.Store.Key == "" {
		errs = append(errs, "store.key is required")
	}

	if c.Network.Interface != "" {
		if _, err := net.InterfaceByName(c.Network.Interface); err != nil {
			errs = append(errs, fmt.Sprintf("network.interface %q: %v", c.Network.Interface, err))
		}
	}
	if c.Network.TTL < 1 || c.Network.TTL > 255 {
		errs = append(errs, "network.ttl must be between 1 and 255")
	}
	if c.Network.DefaultPort < 0 || c.Network.DefaultPort > 65535 {
		errs = append(errs, "network.default_port must be between 0 and 65535")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File == "" {
			errs = append(errs, "logging.file is required when logging.output is file")
		}
	default:
		errs = append(errs, fmt.Sprintf("logging.output must be stdout, stderr or file, got %q", c.Logging.Output))
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		errs = append(errs, "listen.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StoreDir returns the directory the store writes into. For the file
// backend the path is the directory itself.
func (c *Config) StoreDir() string {
	if c.Store.Backend == BackendFile {
		return c.Store.Path
	}
	return filepath.Dir(c.Store.Path)
}

// writable reports whether dir, or its closest existing ancestor if dir
// has not been created yet, is writable.
func writable(dir string) bool {
	for {
		if _, err := os.Stat(dir); err == nil {
			return unix.Access(dir, unix.W_OK) == nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
