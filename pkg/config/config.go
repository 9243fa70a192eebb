package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Address   string          `yaml:"address"`
	StaticDir string          `yaml:"static_dir"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BroadcastConfig controls the periodic frame broadcast loop
type BroadcastConfig struct {
	FrameRate   int     `yaml:"frame_rate"`   // frames per second
	SampleCount int     `yaml:"sample_count"` // waveform samples per frame
	SignalHz    float64 `yaml:"signal_hz"`    // synthesized sine frequency
	DataLabel   string  `yaml:"data_label"`   // broadcast channel label
	EchoLabel   string  `yaml:"echo_label"`   // echo channel label
}

// WebRTCConfig represents transport negotiation settings
type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

// DatabaseConfig represents session event store settings
type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite | mysql | none
	Path string `yaml:"path"` // file path (sqlite) or DSN (mysql)
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Address:   "localhost:52999",
		StaticDir: "web/static",
		Broadcast: BroadcastConfig{
			FrameRate:   60,
			SampleCount: 1000,
			SignalHz:    10,
			DataLabel:   "webscope_data",
			EchoLabel:   "echo",
		},
		WebRTC: WebRTCConfig{
			STUNServers: nil,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./webscope.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*ServerConfig, error) {
	config := DefaultConfig()

	// Load from file if provided
	if configPath != "" {
		if err := loadFromFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	applyEnvOverrides(config)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string, config *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(config *ServerConfig) {
	if addr := os.Getenv("WEBSCOPE_ADDR"); addr != "" {
		config.Address = addr
	}

	if dir := os.Getenv("WEBSCOPE_STATIC_DIR"); dir != "" {
		config.StaticDir = dir
	}

	if rate := os.Getenv("WEBSCOPE_FRAME_RATE"); rate != "" {
		if val, err := strconv.Atoi(rate); err == nil {
			config.Broadcast.FrameRate = val
		}
	}

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
}

// Validate validates the configuration
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	if c.Broadcast.FrameRate < 1 {
		return fmt.Errorf("frame rate must be at least 1")
	}

	if c.Broadcast.SampleCount < 2 {
		return fmt.Errorf("sample count must be at least 2")
	}

	if c.Broadcast.SignalHz <= 0 {
		return fmt.Errorf("signal frequency must be positive")
	}

	if c.Broadcast.DataLabel == "" || c.Broadcast.EchoLabel == "" {
		return fmt.Errorf("channel labels cannot be empty")
	}

	switch c.Database.Type {
	case "sqlite", "mysql", "none", "":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	valid := []string{"debug", "info", "warn", "error"}
	level = strings.ToLower(level)
	for _, v := range valid {
		if level == v {
			return true
		}
	}
	return false
}

// FrameInterval returns the target duration of one broadcast cycle
func (c *BroadcastConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// String returns a string representation of the configuration (for logging)
func (c *ServerConfig) String() string {
	return fmt.Sprintf("Config{Address: %s, FrameRate: %d, DB: %s, LogLevel: %s}",
		c.Address, c.Broadcast.FrameRate, c.Database.Type, c.Logging.Level)
}
