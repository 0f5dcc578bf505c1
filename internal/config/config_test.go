package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)
	assert.Equal(t, VariantFull, cfg.Model.Variant)
	assert.Equal(t, DefaultFullPath, cfg.Model.ArtifactPath())
	assert.Equal(t, 1, cfg.Model.PoolSize)
	assert.True(t, cfg.History.Enabled)
	assert.Empty(t, cfg.Alerts.MQTTBroker)
	require.NoError(t, cfg.Validate())
}

func TestArtifactPathFollowsVariant(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Model.Variant = VariantQuantized
	assert.Equal(t, DefaultQuantizedPath, cfg.Model.ArtifactPath())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, ErrInvalidPort},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, ErrInvalidUploadLimit},
		{"unknown variant", func(c *Config) { c.Model.Variant = "tflite" }, ErrInvalidVariant},
		{"empty artifact path", func(c *Config) { c.Model.FullPath = "" }, ErrNoArtifactPath},
		{"zero pool", func(c *Config) { c.Model.PoolSize = 0 }, ErrInvalidPoolSize},
		{"history without path", func(c *Config) { c.History.Path = "" }, ErrNoHistoryPath},
		{"broker without topic", func(c *Config) {
			c.Alerts.MQTTBroker = "tcp://localhost:1883"
			c.Alerts.Topic = ""
		}, ErrNoAlertTopic},
		{"confidence above 100", func(c *Config) { c.Alerts.MinConfidence = 101 }, ErrInvalidMinConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestOriginsWidenInDevelopment(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Server.AllowedOrigins = []string{"https://rail.example"}
	assert.Equal(t, []string{"https://rail.example"}, cfg.Origins())

	cfg.Environment = EnvironmentDevelopment
	assert.Equal(t, []string{"https://rail.example", "*"}, cfg.Origins())
	assert.Equal(t, []string{"https://rail.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "railcrack.yaml")
	content := `
server:
  port: "9090"
  read_timeout: 5s
model:
  variant: quantized
  pool_size: 3
alerts:
  mqtt_broker: tcp://broker:1883
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewConfig()
	require.NoError(t, LoadFile(path, cfg))

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, VariantQuantized, cfg.Model.Variant)
	assert.Equal(t, 3, cfg.Model.PoolSize)
	assert.Equal(t, "tcp://broker:1883", cfg.Alerts.MQTTBroker)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultAlertTopic, cfg.Alerts.Topic)
	assert.Equal(t, DefaultQuantizedPath, cfg.Model.ArtifactPath())
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := LoadFile(filepath.Join(dir, "missing.yaml"), NewConfig())
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o600))
	assert.Error(t, LoadFile(bad, NewConfig()))
}

func TestLoadExplicitMissingPath(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "7000")
	t.Setenv("ONNXRUNTIME_LIB", "/opt/ort/libonnxruntime.so")
	t.Setenv("RAILCRACK_MODEL_VARIANT", VariantQuantized)
	t.Setenv("RAILCRACK_LOG_LEVEL", "debug")

	cfg := NewConfig()
	ApplyEnv(cfg)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.Model.RuntimeLibrary)
	assert.Equal(t, VariantQuantized, cfg.Model.Variant)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:7000", cfg.Addr())
}
