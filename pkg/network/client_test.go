// pkg/network/client_test.go
package network

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-facebreak/pkg/engine"
)

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"localhost:4566", "ws://localhost:4566", false},
		{"http://127.0.0.1:8080/", "ws://127.0.0.1:8080", false},
		{"https://example.com/game", "wss://example.com/game", false},
		{"ws://host:1", "ws://host:1", false},
		{"ftp://host", "", true},
		{"ws://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseBaseURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBaseURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.expected {
				t.Errorf("parseBaseURL(%q) = %q, expected %q", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestClient_Endpoint(t *testing.T) {
	c, err := NewClient("http://example.com/game/", ClientOptions{Name: "kiosk", Codec: "msgpack"})
	if err != nil {
		t.Fatal(err)
	}
	got := c.endpoint(WatchPath)
	expected := "ws://example.com/game/watch?codec=msgpack&name=kiosk"
	if got != expected {
		t.Errorf("endpoint() = %q, expected %q", got, expected)
	}

	if _, err := NewClient("localhost:1", ClientOptions{Codec: "xml"}); err == nil {
		t.Error("NewClient() should reject an unknown codec")
	}
	if _, err := c.Dial(context.Background(), Role("spectator")); err == nil {
		t.Error("Dial() should reject an unknown role")
	}
}

func TestClient_DialFailureThroughBreaker(t *testing.T) {
	breaker := NewBreaker("server", breakerConfig(1, 30*time.Second), nil)
	c, err := NewClient("127.0.0.1:1", ClientOptions{Breaker: breaker, HandshakeTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Dial(context.Background(), RoleWatcher)
	var dialErr *DialError
	if !errors.As(err, &dialErr) {
		t.Fatalf("Dial() error = %v, expected a DialError", err)
	}
	if dialErr.Path != WatchPath || dialErr.StatusCode != 0 {
		t.Errorf("DialError = %+v", dialErr)
	}
	if breaker.Closed() {
		t.Error("breaker should open after the failed dial")
	}
	if IsServerFull(err) {
		t.Error("a refused TCP connection is not a full server")
	}
}

func TestIsServerFull(t *testing.T) {
	full := &DialError{Path: TrackPath, StatusCode: http.StatusServiceUnavailable, Err: websocket.ErrBadHandshake}
	if !IsServerFull(full) {
		t.Error("IsServerFull() = false for a 503")
	}
	if IsServerFull(nil) || IsServerFull(errors.New("boom")) {
		t.Error("IsServerFull() = true for an unrelated error")
	}
	if !errors.Is(full, websocket.ErrBadHandshake) {
		t.Error("DialError should unwrap to the handshake error")
	}
}

func TestCodecs(t *testing.T) {
	state := &engine.GameState{
		Tick:   7,
		Status: "running",
		Score:  12,
		Bricks: []engine.BrickState{{ID: 3, Column: 1, Row: 2, Color: "#ff0000"}},
	}

	for _, name := range []string{"", "json", "MSGPACK"} {
		codec, err := ParseCodec(name)
		if err != nil {
			t.Fatalf("ParseCodec(%q) error = %v", name, err)
		}

		data, err := codec.Marshal(state)
		if err != nil {
			t.Fatalf("%s Marshal() error = %v", codec.Name(), err)
		}
		var decoded engine.GameState
		if err := codecForFrame(codec.FrameType()).Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%s Unmarshal() error = %v", codec.Name(), err)
		}
		if decoded.Tick != 7 || decoded.Score != 12 || len(decoded.Bricks) != 1 || decoded.Bricks[0].Color != "#ff0000" {
			t.Errorf("%s decoded %+v", codec.Name(), decoded)
		}
	}

	if _, err := ParseCodec("xml"); err == nil {
		t.Error("ParseCodec(xml) should fail")
	}
}

// TestMsgpackCodec_UsesJSONNames checks that binary snapshots carry the same
// keys as JSON ones, so clients in other languages read both alike.
func TestMsgpackCodec_UsesJSONNames(t *testing.T) {
	data, err := MsgpackCodec{}.Marshal(engine.Command{Kind: engine.CommandResize, Width: 640, Height: 480})
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]interface{}
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["command"] != "resize" || doc["width"] != 640.0 {
		t.Errorf("msgpack document = %v, expected json field names", doc)
	}
	if (MsgpackCodec{}).FrameType() != websocket.BinaryMessage || (JSONCodec{}).FrameType() != websocket.TextMessage {
		t.Error("codec frame types are swapped")
	}
}
