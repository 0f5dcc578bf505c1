package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	ErrInvalidPort          = errors.New("invalid port: must not be empty")
	ErrInvalidUploadLimit   = errors.New("invalid max upload size: must be positive")
	ErrInvalidVariant       = errors.New("invalid model variant: must be \"full\" or \"quantized\"")
	ErrNoArtifactPath       = errors.New("no model artifact path configured for the selected variant")
	ErrInvalidPoolSize      = errors.New("invalid pool size: must be positive")
	ErrNoHistoryPath        = errors.New("history enabled but no database path configured")
	ErrNoAlertTopic         = errors.New("mqtt broker configured but alert topic is empty")
	ErrInvalidMinConfidence = errors.New("invalid alert min confidence: must be within [0, 100]")
)
