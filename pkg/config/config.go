// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// GameConfig contains configuration for a brick-breaker session
type GameConfig struct {
	Field    FieldConfig    `json:"field" toml:"field"`
	Ball     BallConfig     `json:"ball" toml:"ball"`
	Paddle   PaddleConfig   `json:"paddle" toml:"paddle"`
	Board    BoardConfig    `json:"board" toml:"board"`
	Rules    GameRules      `json:"rules" toml:"rules"`
	Tracking TrackingConfig `json:"tracking" toml:"tracking"`
	Network  NetworkConfig  `json:"network" toml:"network"`
}

// FieldConfig describes the play field. Ratios are fractions of the height.
type FieldConfig struct {
	Width            float64 `json:"width" toml:"width"`
	Height           float64 `json:"height" toml:"height"`
	DeathLineRatio   float64 `json:"deathLineRatio" toml:"death_line_ratio"`
	BoardHeightRatio float64 `json:"boardHeightRatio" toml:"board_height_ratio"`
}

// BallConfig contains the ball's size and serve velocity in pixels per second
type BallConfig struct {
	Radius    float64 `json:"radius" toml:"radius"`
	VelocityX float64 `json:"velocityX" toml:"velocity_x"`
	VelocityY float64 `json:"velocityY" toml:"velocity_y"`
}

// PaddleConfig contains paddle geometry and steering
type PaddleConfig struct {
	Width        float64 `json:"width" toml:"width"`
	Height       float64 `json:"height" toml:"height"`
	BottomOffset float64 `json:"bottomOffset" toml:"bottom_offset"`
	SpinFactor   float64 `json:"spinFactor" toml:"spin_factor"`
	Clamp        bool    `json:"clamp" toml:"clamp"`
	LockY        bool    `json:"lockY" toml:"lock_y"`
}

// BoardConfig contains the brick grid layout
type BoardConfig struct {
	Columns     int      `json:"columns" toml:"columns"`
	Rows        int      `json:"rows" toml:"rows"`
	SidePadding float64  `json:"sidePadding" toml:"side_padding"`
	TopPadding  float64  `json:"topPadding" toml:"top_padding"`
	Gap         float64  `json:"gap" toml:"gap"`
	Palette     []string `json:"palette" toml:"palette"`
}

// GameRules contains game rules configuration
type GameRules struct {
	Lives          int     `json:"lives" toml:"lives"`
	CountdownTicks int     `json:"countdownTicks" toml:"countdown_ticks"`
	TrackingWarmup int     `json:"trackingWarmup" toml:"tracking_warmup"`
	MaxDeltaTime   float64 `json:"maxDeltaTime" toml:"max_delta_time"`
	TickRate       int     `json:"tickRate" toml:"tick_rate"`
}

// TrackingConfig contains tracking input settings
type TrackingConfig struct {
	Mirror         bool   `json:"mirror" toml:"mirror"`
	RightKeypoint  int    `json:"rightKeypoint" toml:"right_keypoint"`
	LeftKeypoint   int    `json:"leftKeypoint" toml:"left_keypoint"`
	DetectorURL    string `json:"detectorURL" toml:"detector_url"`
	PollIntervalMs int    `json:"pollIntervalMs" toml:"poll_interval_ms"`
}

// NetworkConfig contains network-related configuration
type NetworkConfig struct {
	ListenAddress string `json:"listenAddress" toml:"listen_address"`
	SnapshotRate  int    `json:"snapshotRate" toml:"snapshot_rate"`
	MaxClients    int    `json:"maxClients" toml:"max_clients"`
	Codec         string `json:"codec" toml:"codec"`
}

// Codec names accepted by NetworkConfig.Codec
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// DefaultConfig returns a default game configuration
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Field: FieldConfig{
			Width:            800,
			Height:           600,
			DeathLineRatio:   0.9,
			BoardHeightRatio: 0.25,
		},
		Ball: BallConfig{
			Radius:    25,
			VelocityX: 300,
			VelocityY: -300,
		},
		Paddle: PaddleConfig{
			Width:        120,
			Height:       40,
			BottomOffset: 50,
			SpinFactor:   0.2,
		},
		Board: BoardConfig{
			Columns:     10,
			Rows:        5,
			SidePadding: 10,
			TopPadding:  10,
			Gap:         10,
		},
		Rules: GameRules{
			Lives:          3,
			CountdownTicks: 3,
			TrackingWarmup: 3,
			MaxDeltaTime:   0.05,
			TickRate:       60,
		},
		Tracking: TrackingConfig{
			RightKeypoint:  76,
			LeftKeypoint:   306,
			PollIntervalMs: 33,
		},
		Network: NetworkConfig{
			ListenAddress: ":4566",
			SnapshotRate:  20,
			MaxClients:    16,
			Codec:         CodecJSON,
		},
	}
}

// LoadConfig loads a configuration from a file. Files ending in .toml are
// decoded as TOML, everything else as JSON. Missing keys keep their defaults.
func LoadConfig(path string) (*GameConfig, error) {
	config := DefaultConfig()

	if isTOML(path) {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file, as TOML for .toml paths
func SaveConfig(config *GameConfig, path string) error {
	if config == nil {
		return fmt.Errorf("failed to marshal config: %w", ErrInvalidConfig)
	}

	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate checks the configuration and returns a *ValidationError wrapping
// ErrInvalidConfig for the first problem found.
func (c *GameConfig) Validate() error {
	checks := []struct {
		ok      bool
		field   string
		value   interface{}
		message string
	}{
		{c.Field.Width > 0 && c.Field.Height > 0, "Field", fmt.Sprintf("%vx%v", c.Field.Width, c.Field.Height), "field size must be positive"},
		{c.Field.DeathLineRatio > 0 && c.Field.DeathLineRatio <= 1, "Field.DeathLineRatio", c.Field.DeathLineRatio, "must be in (0, 1]"},
		{c.Field.BoardHeightRatio > 0 && c.Field.BoardHeightRatio < c.Field.DeathLineRatio, "Field.BoardHeightRatio", c.Field.BoardHeightRatio, "must be positive and above the death line"},
		{c.Ball.Radius > 0, "Ball.Radius", c.Ball.Radius, "must be positive"},
		{c.Paddle.Width > 0 && c.Paddle.Height > 0, "Paddle", fmt.Sprintf("%vx%v", c.Paddle.Width, c.Paddle.Height), "paddle size must be positive"},
		{c.Paddle.SpinFactor >= 0, "Paddle.SpinFactor", c.Paddle.SpinFactor, "must not be negative"},
		{c.Board.Columns > 0 && c.Board.Rows > 0, "Board", fmt.Sprintf("%dx%d", c.Board.Columns, c.Board.Rows), "grid must have at least one cell"},
		{c.Board.SidePadding >= 0 && c.Board.TopPadding >= 0 && c.Board.Gap >= 0, "Board.Gap", c.Board.Gap, "paddings and gap must not be negative"},
		{c.Rules.Lives > 0, "Rules.Lives", c.Rules.Lives, "must be positive"},
		{c.Rules.CountdownTicks >= 0, "Rules.CountdownTicks", c.Rules.CountdownTicks, "must not be negative"},
		{c.Rules.TrackingWarmup >= 0, "Rules.TrackingWarmup", c.Rules.TrackingWarmup, "must not be negative"},
		{c.Rules.MaxDeltaTime > 0, "Rules.MaxDeltaTime", c.Rules.MaxDeltaTime, "must be positive"},
		{c.Rules.TickRate > 0 && c.Rules.TickRate <= 1000, "Rules.TickRate", c.Rules.TickRate, "must be between 1 and 1000"},
		{c.Tracking.RightKeypoint >= 0 && c.Tracking.LeftKeypoint >= 0, "Tracking.Keypoints", fmt.Sprintf("%d/%d", c.Tracking.RightKeypoint, c.Tracking.LeftKeypoint), "keypoint indices must not be negative"},
		{c.Tracking.PollIntervalMs > 0, "Tracking.PollIntervalMs", c.Tracking.PollIntervalMs, "must be positive"},
		{c.Network.SnapshotRate > 0, "Network.SnapshotRate", c.Network.SnapshotRate, "must be positive"},
		{c.Network.MaxClients > 0, "Network.MaxClients", c.Network.MaxClients, "must be positive"},
		{c.Network.Codec == CodecJSON || c.Network.Codec == CodecMsgpack, "Network.Codec", c.Network.Codec, "must be json or msgpack"},
	}

	for _, check := range checks {
		if !check.ok {
			return &ValidationError{Field: check.field, Value: check.value, Message: check.message}
		}
	}
	return nil
}

// DeathLine returns the death line y for the configured field height
func (c *GameConfig) DeathLine(height float64) float64 {
	return c.Field.DeathLineRatio * height
}
