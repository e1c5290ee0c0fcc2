// Package validation provides input validation and sanitization for network messages.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
	"github.com/vmihailenco/msgpack/v5"
)

// Message size and content limits
const (
	MaxMessageSize    = 64 * 1024 // 64KB max message
	MaxClientNameLen  = 32
	MaxKeypoints      = 1024
	MaxFrameDimension = 16384
	MinFieldDimension = 100
	MaxFieldDimension = 10000

	// detectors stream at camera rate, controls are human-paced
	MaxTrackMessagesPerMin   = 3600
	MaxControlMessagesPerMin = 120
)

// Regular expressions for input validation
var (
	validClientNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.<>()]+$`)
)

// MessageValidator checks raw frames before they are decoded
type MessageValidator struct {
	rateLimiter *RateLimiter
}

// NewMessageValidator creates a validator allowing limit messages per window
// for every client.
func NewMessageValidator(limit int, window time.Duration) *MessageValidator {
	return &MessageValidator{
		rateLimiter: NewRateLimiter(limit, window),
	}
}

// Close releases resources used by the message validator
func (v *MessageValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// Forget drops the rate-limit bucket of a disconnected client
func (v *MessageValidator) Forget(clientID string) {
	v.rateLimiter.Forget(clientID)
}

// Clients returns how many clients currently hold a rate-limit bucket
func (v *MessageValidator) Clients() int {
	return v.rateLimiter.Clients()
}

// ValidateMessage validates a JSON text frame
func (v *MessageValidator) ValidateMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}

	return v.allow(clientID)
}

// ValidateBinaryMessage validates a msgpack binary frame. The frame must hold
// exactly one well-formed value.
func (v *MessageValidator) ValidateBinaryMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}
	if len(data) == 0 {
		return fmt.Errorf("invalid msgpack format: empty frame")
	}

	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	if err := dec.Skip(); err != nil {
		return fmt.Errorf("invalid msgpack format: %w", err)
	}
	if r.Len() != 0 {
		return fmt.Errorf("invalid msgpack format: %d trailing bytes", r.Len())
	}

	return v.allow(clientID)
}

func (v *MessageValidator) allow(clientID string) error {
	if v.rateLimiter != nil && !v.rateLimiter.Allow(clientID) {
		return fmt.Errorf("rate limit exceeded for client %s", clientID)
	}
	return nil
}

// ValidateClientName validates and sanitizes the display name a client
// announces when it connects.
func ValidateClientName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("client name cannot be empty")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("client name cannot be only whitespace")
	}

	if utf8.RuneCountInString(trimmed) > MaxClientNameLen {
		return "", fmt.Errorf("client name too long: %d characters (max %d)", utf8.RuneCountInString(trimmed), MaxClientNameLen)
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("client name contains control characters")
		}
	}

	if !validClientNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("client name contains invalid characters")
	}

	return html.EscapeString(trimmed), nil
}

// ValidateDetection checks a decoded detector result. Keypoints outside the
// frame are legal; the mapper clamps them.
func ValidateDetection(d tracking.Detection) error {
	if !finite(d.FrameWidth) || !finite(d.FrameHeight) {
		return fmt.Errorf("frame size is not finite: %vx%v", d.FrameWidth, d.FrameHeight)
	}
	if d.FrameWidth <= 0 || d.FrameHeight <= 0 {
		return fmt.Errorf("frame size must be positive: %vx%v", d.FrameWidth, d.FrameHeight)
	}
	if d.FrameWidth > MaxFrameDimension || d.FrameHeight > MaxFrameDimension {
		return fmt.Errorf("frame size too large: %vx%v (max %d)", d.FrameWidth, d.FrameHeight, MaxFrameDimension)
	}

	if len(d.Keypoints) == 0 {
		return fmt.Errorf("detection has no keypoints")
	}
	if len(d.Keypoints) > MaxKeypoints {
		return fmt.Errorf("too many keypoints: %d (max %d)", len(d.Keypoints), MaxKeypoints)
	}
	for i, kp := range d.Keypoints {
		if !finite(kp.X) || !finite(kp.Y) {
			return fmt.Errorf("keypoint %d is not finite", i)
		}
	}
	return nil
}

// ValidateKeypointIndices verifies that the detection carries both landmark
// indices the session reads.
func ValidateKeypointIndices(d tracking.Detection, right, left int) error {
	for _, i := range []int{right, left} {
		if i < 0 || i >= len(d.Keypoints) {
			return fmt.Errorf("keypoint index %d out of range: detection has %d", i, len(d.Keypoints))
		}
	}
	return nil
}

// ValidateCommand normalizes the command name and checks its arguments
func ValidateCommand(cmd engine.Command) (engine.Command, error) {
	kind, err := engine.ParseCommandKind(string(cmd.Kind))
	if err != nil {
		return engine.Command{}, err
	}
	cmd.Kind = kind

	if kind == engine.CommandResize {
		if err := ValidateResize(cmd.Width, cmd.Height); err != nil {
			return engine.Command{}, err
		}
	} else {
		cmd.Width, cmd.Height = 0, 0
	}
	return cmd, nil
}

// ValidateResize validates a requested field size
func ValidateResize(width, height float64) error {
	if !finite(width) || !finite(height) {
		return fmt.Errorf("field size is not finite: %vx%v", width, height)
	}
	if width < MinFieldDimension || width > MaxFieldDimension {
		return fmt.Errorf("invalid field width: %v (must be %d-%d)", width, MinFieldDimension, MaxFieldDimension)
	}
	if height < MinFieldDimension || height > MaxFieldDimension {
		return fmt.Errorf("invalid field height: %v (must be %d-%d)", height, MinFieldDimension, MaxFieldDimension)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
