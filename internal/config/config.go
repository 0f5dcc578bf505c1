package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// AppName is used for XDG directory paths and the default config file name.
const AppName = "railcrack"

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = "8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultMaxUploadBytes matches the 10MB multipart limit the upload handler
	// has always enforced.
	DefaultMaxUploadBytes = 10 << 20

	DefaultVariant       = VariantFull
	DefaultFullPath      = "models/best_model.onnx"
	DefaultQuantizedPath = "models/model.quant.onnx"
	DefaultMetadataPath  = "models/model_metadata.json"
	DefaultPoolSize      = 1

	DefaultAlertTopic         = "railcrack/alerts"
	DefaultAlertMinConfidence = 0.0

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// EnvironmentDevelopment widens CORS to any origin.
	EnvironmentDevelopment = "development"
)

// Model artifact variants.
const (
	VariantFull      = "full"
	VariantQuantized = "quantized"
)

// DefaultAllowedOrigins mirrors the origins the frontend is served from.
var DefaultAllowedOrigins = []string{
	"*",
	"http://localhost:3000",
	"http://localhost:5173",
}

// Config is the full runtime configuration. It is built once by Load and
// passed down explicitly.
type Config struct {
	// Environment is taken from the ENVIRONMENT variable.
	Environment string `yaml:"environment"`

	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	History HistoryConfig `yaml:"history"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// ModelConfig locates the model artifacts and sizes the session pool.
type ModelConfig struct {
	// Variant selects which artifact the service loads: "full" or "quantized".
	Variant       string `yaml:"variant"`
	FullPath      string `yaml:"full_path"`
	QuantizedPath string `yaml:"quantized_path"`
	MetadataPath  string `yaml:"metadata_path"`

	// RuntimeLibrary is the path to the onnxruntime shared library. Empty
	// means the platform default lookup.
	RuntimeLibrary string `yaml:"runtime_library"`

	// PoolSize is the number of independently initialized sessions. 1 means
	// every forward pass is serialized through a single session.
	PoolSize int `yaml:"pool_size"`
}

// HistoryConfig controls the prediction history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AlertsConfig controls MQTT crack alerts. Alerts are off when MQTTBroker is empty.
type AlertsConfig struct {
	MQTTBroker    string  `yaml:"mqtt_broker"`
	Topic         string  `yaml:"topic"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	origins := make([]string, len(DefaultAllowedOrigins))
	copy(origins, DefaultAllowedOrigins)

	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			AllowedOrigins:  origins,
		},
		Model: ModelConfig{
			Variant:       DefaultVariant,
			FullPath:      DefaultFullPath,
			QuantizedPath: DefaultQuantizedPath,
			MetadataPath:  DefaultMetadataPath,
			PoolSize:      DefaultPoolSize,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(XDGDataDir(), "history.db"),
		},
		Alerts: AlertsConfig{
			Topic:         DefaultAlertTopic,
			MinConfidence: DefaultAlertMinConfidence,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// ArtifactPath returns the artifact path for the configured variant.
func (m ModelConfig) ArtifactPath() string {
	if m.Variant == VariantQuantized {
		return m.QuantizedPath
	}
	return m.FullPath
}

// IsDevelopment reports whether ENVIRONMENT=development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvironmentDevelopment
}

// Origins returns the CORS origins in effect, widened to any origin in
// development.
func (c *Config) Origins() []string {
	origins := append([]string(nil), c.Server.AllowedOrigins...)
	if c.IsDevelopment() {
		origins = append(origins, "*")
	}
	return origins
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// XDGDataDir returns the XDG data directory for railcrack.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for railcrack.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return ErrInvalidPort
	}
	if c.Server.MaxUploadBytes <= 0 {
		return ErrInvalidUploadLimit
	}
	if c.Model.Variant != VariantFull && c.Model.Variant != VariantQuantized {
		return ErrInvalidVariant
	}
	if c.Model.ArtifactPath() == "" {
		return ErrNoArtifactPath
	}
	if c.Model.PoolSize <= 0 {
		return ErrInvalidPoolSize
	}
	if c.History.Enabled && c.History.Path == "" {
		return ErrNoHistoryPath
	}
	if c.Alerts.MQTTBroker != "" && c.Alerts.Topic == "" {
		return ErrNoAlertTopic
	}
	if c.Alerts.MinConfidence < 0 || c.Alerts.MinConfidence > 100 {
		return ErrInvalidMinConfidence
	}
	return nil
}
