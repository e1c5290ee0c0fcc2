// pkg/config/env_config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvServerAddr      = "FACEBREAK_SERVER_ADDR"
	EnvServerPort      = "FACEBREAK_SERVER_PORT"
	EnvMaxClients      = "FACEBREAK_MAX_CLIENTS"
	EnvReadTimeout     = "FACEBREAK_READ_TIMEOUT"
	EnvWriteTimeout    = "FACEBREAK_WRITE_TIMEOUT"
	EnvSnapshotRate    = "FACEBREAK_SNAPSHOT_RATE"
	EnvTickRate        = "FACEBREAK_TICK_RATE"
	EnvFieldWidth      = "FACEBREAK_FIELD_WIDTH"
	EnvFieldHeight     = "FACEBREAK_FIELD_HEIGHT"
	EnvLives           = "FACEBREAK_LIVES"
	EnvMirror          = "FACEBREAK_MIRROR"
	EnvDetectorURL     = "FACEBREAK_DETECTOR_URL"
	EnvDetectorTimeout = "FACEBREAK_DETECTOR_TIMEOUT"
	EnvCodec           = "FACEBREAK_CODEC"

	EnvBreakerMaxRequests         = "FACEBREAK_CB_MAX_REQUESTS"
	EnvBreakerInterval            = "FACEBREAK_CB_INTERVAL"
	EnvBreakerTimeout             = "FACEBREAK_CB_TIMEOUT"
	EnvBreakerMaxConsecutiveFails = "FACEBREAK_CB_MAX_CONSECUTIVE_FAILS"

	EnvMaxMemoryMB         = "FACEBREAK_MAX_MEMORY_MB"
	EnvMaxTasks            = "FACEBREAK_MAX_TASKS"
	EnvShutdownTimeout     = "FACEBREAK_SHUTDOWN_TIMEOUT"
	EnvHealthCheckInterval = "FACEBREAK_HEALTH_CHECK_INTERVAL"
)

// EnvironmentConfig holds deployment settings read from FACEBREAK_* variables
type EnvironmentConfig struct {
	ServerAddr   string
	ServerPort   int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SnapshotRate int
	TickRate     int

	FieldWidth  float64
	FieldHeight float64
	Lives       int
	Mirror      bool
	Codec       string

	DetectorURL     string
	DetectorTimeout time.Duration

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         uint32
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails uint32

	// Resource Management Configuration
	MaxMemoryMB         int
	MaxTasks            int
	ShutdownTimeout     time.Duration
	HealthCheckInterval time.Duration
}

// ValidationError reports a configuration field that failed validation
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s (value: %v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidConfig
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// LoadConfigFromEnv reads the environment, falling back to defaults
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		ServerAddr:   getEnvOrDefault(EnvServerAddr, "localhost"),
		ServerPort:   getEnvAsIntOrDefault(EnvServerPort, 4566),
		MaxClients:   getEnvAsIntOrDefault(EnvMaxClients, 16),
		ReadTimeout:  getEnvAsDurationOrDefault(EnvReadTimeout, 30*time.Second),
		WriteTimeout: getEnvAsDurationOrDefault(EnvWriteTimeout, 30*time.Second),
		SnapshotRate: getEnvAsIntOrDefault(EnvSnapshotRate, 20),
		TickRate:     getEnvAsIntOrDefault(EnvTickRate, 60),

		FieldWidth:  getEnvAsFloatOrDefault(EnvFieldWidth, 800),
		FieldHeight: getEnvAsFloatOrDefault(EnvFieldHeight, 600),
		Lives:       getEnvAsIntOrDefault(EnvLives, 3),
		Mirror:      getEnvAsBoolOrDefault(EnvMirror, false),
		Codec:       getEnvOrDefault(EnvCodec, CodecJSON),

		DetectorURL:     getEnvOrDefault(EnvDetectorURL, ""),
		DetectorTimeout: getEnvAsDurationOrDefault(EnvDetectorTimeout, 2*time.Second),

		CircuitBreakerMaxRequests:         uint32(getEnvAsIntOrDefault(EnvBreakerMaxRequests, 3)),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault(EnvBreakerInterval, 60*time.Second),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault(EnvBreakerTimeout, 30*time.Second),
		CircuitBreakerMaxConsecutiveFails: uint32(getEnvAsIntOrDefault(EnvBreakerMaxConsecutiveFails, 5)),

		MaxMemoryMB:         getEnvAsIntOrDefault(EnvMaxMemoryMB, 256),
		MaxTasks:            getEnvAsIntOrDefault(EnvMaxTasks, 32),
		ShutdownTimeout:     getEnvAsDurationOrDefault(EnvShutdownTimeout, 10*time.Second),
		HealthCheckInterval: getEnvAsDurationOrDefault(EnvHealthCheckInterval, 10*time.Second),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	switch {
	case config.ServerAddr == "":
		return &ValidationError{Field: "ServerAddr", Value: config.ServerAddr, Message: "must not be empty"}
	case config.ServerPort < 1024 || config.ServerPort > 65535:
		return &ValidationError{Field: "ServerPort", Value: config.ServerPort, Message: "must be between 1024 and 65535"}
	case config.MaxClients < 1 || config.MaxClients > 1000:
		return &ValidationError{Field: "MaxClients", Value: config.MaxClients, Message: "must be between 1 and 1000"}
	case config.ReadTimeout < time.Second || config.ReadTimeout > time.Minute:
		return &ValidationError{Field: "ReadTimeout", Value: config.ReadTimeout, Message: "must be between 1s and 1m"}
	case config.WriteTimeout < time.Second || config.WriteTimeout > time.Minute:
		return &ValidationError{Field: "WriteTimeout", Value: config.WriteTimeout, Message: "must be between 1s and 1m"}
	case config.SnapshotRate < 1 || config.SnapshotRate > 100:
		return &ValidationError{Field: "SnapshotRate", Value: config.SnapshotRate, Message: "must be between 1 and 100"}
	case config.TickRate < 1 || config.TickRate > 1000:
		return &ValidationError{Field: "TickRate", Value: config.TickRate, Message: "must be between 1 and 1000"}
	case config.FieldWidth < 100 || config.FieldWidth > 10000:
		return &ValidationError{Field: "FieldWidth", Value: config.FieldWidth, Message: "must be between 100 and 10000"}
	case config.FieldHeight < 100 || config.FieldHeight > 10000:
		return &ValidationError{Field: "FieldHeight", Value: config.FieldHeight, Message: "must be between 100 and 10000"}
	case config.Lives < 1 || config.Lives > 99:
		return &ValidationError{Field: "Lives", Value: config.Lives, Message: "must be between 1 and 99"}
	case config.Codec != CodecJSON && config.Codec != CodecMsgpack:
		return &ValidationError{Field: "Codec", Value: config.Codec, Message: "must be json or msgpack"}
	case config.DetectorTimeout < 100*time.Millisecond || config.DetectorTimeout > 30*time.Second:
		return &ValidationError{Field: "DetectorTimeout", Value: config.DetectorTimeout, Message: "must be between 100ms and 30s"}
	case config.CircuitBreakerMaxRequests < 1:
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: config.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	case config.CircuitBreakerInterval < time.Second:
		return &ValidationError{Field: "CircuitBreakerInterval", Value: config.CircuitBreakerInterval, Message: "must be at least 1s"}
	case config.CircuitBreakerTimeout < time.Second:
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: config.CircuitBreakerTimeout, Message: "must be at least 1s"}
	case config.CircuitBreakerMaxConsecutiveFails < 1:
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: config.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	case config.MaxMemoryMB < 16:
		return &ValidationError{Field: "MaxMemoryMB", Value: config.MaxMemoryMB, Message: "must be at least 16"}
	case config.MaxTasks < 1 || config.MaxTasks > 1024:
		return &ValidationError{Field: "MaxTasks", Value: config.MaxTasks, Message: "must be between 1 and 1024"}
	case config.ShutdownTimeout < time.Second || config.ShutdownTimeout > 5*time.Minute:
		return &ValidationError{Field: "ShutdownTimeout", Value: config.ShutdownTimeout, Message: "must be between 1s and 5m"}
	case config.HealthCheckInterval < time.Second:
		return &ValidationError{Field: "HealthCheckInterval", Value: config.HealthCheckInterval, Message: "must be at least 1s"}
	}
	return nil
}

// ListenAddress joins ServerAddr and ServerPort
func (c *EnvironmentConfig) ListenAddress() string {
	return net.JoinHostPort(c.ServerAddr, strconv.Itoa(c.ServerPort))
}

// ApplyEnvironmentOverrides copies the variables that are actually set onto
// config. Unset variables leave values loaded from a file untouched.
func ApplyEnvironmentOverrides(config *GameConfig) error {
	env, err := LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}

	if isSet(EnvServerAddr) || isSet(EnvServerPort) {
		config.Network.ListenAddress = env.ListenAddress()
	}
	if isSet(EnvMaxClients) {
		config.Network.MaxClients = env.MaxClients
	}
	if isSet(EnvSnapshotRate) {
		config.Network.SnapshotRate = env.SnapshotRate
	}
	if isSet(EnvCodec) {
		config.Network.Codec = env.Codec
	}
	if isSet(EnvTickRate) {
		config.Rules.TickRate = env.TickRate
	}
	if isSet(EnvLives) {
		config.Rules.Lives = env.Lives
	}
	if isSet(EnvFieldWidth) {
		config.Field.Width = env.FieldWidth
	}
	if isSet(EnvFieldHeight) {
		config.Field.Height = env.FieldHeight
	}
	if isSet(EnvMirror) {
		config.Tracking.Mirror = env.Mirror
	}
	if isSet(EnvDetectorURL) {
		config.Tracking.DetectorURL = env.DetectorURL
	}

	return config.Validate()
}

func isSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
