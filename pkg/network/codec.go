// pkg/network/codec.go
package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-facebreak/pkg/config"
)

// Codec serializes messages for one websocket frame type
type Codec interface {
	Name() string
	// FrameType is websocket.TextMessage or websocket.BinaryMessage
	FrameType() int
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// JSONCodec sends text frames
type JSONCodec struct{}

func (JSONCodec) Name() string   { return config.CodecJSON }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec sends binary frames. Field names follow the json tags so both
// codecs produce the same document shape.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string   { return config.CodecMsgpack }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// ParseCodec resolves a codec by name; empty means JSON
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.CodecJSON:
		return JSONCodec{}, nil
	case config.CodecMsgpack:
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// codecForFrame picks the codec matching an inbound frame type
func codecForFrame(frameType int) Codec {
	if frameType == websocket.BinaryMessage {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}
