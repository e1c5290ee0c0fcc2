// pkg/network/client.go
package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
)

// ClientOptions configures a Client. Zero values pick defaults.
type ClientOptions struct {
	Name             string
	Codec            string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// Breaker guards dialing; nil dials directly
	Breaker *Breaker
	Logger  *logging.Logger
}

// Client connects to a Server's websocket endpoints
type Client struct {
	base         *url.URL
	name         string
	codec        Codec
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	breaker      *Breaker
	logger       *logging.Logger
}

// NewClient creates a client for the server at address, given either as
// host:port or as a ws:// or http:// URL.
func NewClient(address string, opts ClientOptions) (*Client, error) {
	base, err := parseBaseURL(address)
	if err != nil {
		return nil, err
	}
	codec, err := ParseCodec(opts.Codec)
	if err != nil {
		return nil, err
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Client{
		base:         base,
		name:         opts.Name,
		codec:        codec,
		dialer:       &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		writeTimeout: opts.WriteTimeout,
		breaker:      opts.Breaker,
		logger:       opts.Logger.With("component", "client"),
	}, nil
}

func parseBaseURL(address string) (*url.URL, error) {
	if !strings.Contains(address, "://") {
		address = "ws://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", address, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("invalid server address %q: unsupported scheme %q", address, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server address %q: missing host", address)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// endpoint builds the URL of one websocket path
func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path += path
	q := url.Values{}
	q.Set("codec", c.codec.Name())
	if c.name != "" {
		q.Set("name", c.name)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Conn is one websocket connection to the server
type Conn struct {
	ws           *websocket.Conn
	id           string
	codec        Codec
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// Dial opens the endpoint for role
func (c *Client) Dial(ctx context.Context, role Role) (*Conn, error) {
	path, err := rolePath(role)
	if err != nil {
		return nil, err
	}
	target := c.endpoint(path)

	var conn *Conn
	dial := func() error {
		ws, resp, err := c.dialer.DialContext(ctx, target, nil)
		if err != nil {
			dialErr := &DialError{Path: path, Err: err}
			if resp != nil {
				dialErr.StatusCode = resp.StatusCode
			}
			return dialErr
		}
		conn = &Conn{
			ws:           ws,
			id:           resp.Header.Get(ClientIDHeader),
			codec:        c.codec,
			writeTimeout: c.writeTimeout,
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.ExecuteWithRetry(ctx, dial)
	} else {
		err = dial()
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info(ctx, "connected", "role", string(role), "client_id", conn.id)
	return conn, nil
}

func rolePath(role Role) (string, error) {
	switch role {
	case RoleTracker:
		return TrackPath, nil
	case RoleController:
		return ControlPath, nil
	case RoleWatcher:
		return WatchPath, nil
	}
	return "", fmt.Errorf("unknown role %q", role)
}

// ID returns the id the server assigned to this connection
func (c *Conn) ID() string {
	return c.id
}

// Send encodes v with the connection codec and writes it as one frame
func (c *Conn) Send(v interface{}) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(c.codec.FrameType(), data)
}

// Receive reads one frame and decodes it into v
func (c *Conn) Receive(v interface{}) error {
	frameType, data, err := c.ws.ReadMessage()
	if err != nil {
		return err
	}
	return codecForFrame(frameType).Unmarshal(data, v)
}

// Close sends a close frame and closes the connection
func (c *Conn) Close() error {
	c.writeMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

// Tracker streams detections to /track. The server answers only rejected
// detections; a background reader counts them.
type Tracker struct {
	conn     *Conn
	rejected atomic.Uint64
	lastErr  atomic.Value
	done     chan struct{}
}

// DialTracker opens a detection stream
func (c *Client) DialTracker(ctx context.Context) (*Tracker, error) {
	conn, err := c.Dial(ctx, RoleTracker)
	if err != nil {
		return nil, err
	}
	t := &Tracker{conn: conn, done: make(chan struct{})}
	go t.readReplies()
	return t, nil
}

func (t *Tracker) readReplies() {
	defer close(t.done)
	for {
		var r Reply
		if err := t.conn.Receive(&r); err != nil {
			return
		}
		if !r.OK {
			t.rejected.Add(1)
			t.lastErr.Store(r.Error)
		}
	}
}

// Send streams one detection
func (t *Tracker) Send(d tracking.Detection) error {
	return t.conn.Send(d)
}

// Rejected returns how many detections the server refused
func (t *Tracker) Rejected() uint64 {
	return t.rejected.Load()
}

// LastError returns the reason of the most recent rejection
func (t *Tracker) LastError() string {
	if s, ok := t.lastErr.Load().(string); ok {
		return s
	}
	return ""
}

// Close ends the stream
func (t *Tracker) Close() error {
	err := t.conn.Close()
	<-t.done
	return err
}

// Controller sends commands to /control and waits for each reply
type Controller struct {
	conn *Conn
	mu   sync.Mutex
}

// DialController opens a control connection
func (c *Client) DialController(ctx context.Context) (*Controller, error) {
	conn, err := c.Dial(ctx, RoleController)
	if err != nil {
		return nil, err
	}
	return &Controller{conn: conn}, nil
}

// Send queues cmd on the server and returns its acknowledgement. A refused
// command returns the reply and an error carrying the server's reason.
func (c *Controller) Send(cmd engine.Command) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.Send(cmd); err != nil {
		return Reply{}, err
	}
	var reply Reply
	if err := c.conn.Receive(&reply); err != nil {
		return Reply{}, err
	}
	if !reply.OK {
		return reply, fmt.Errorf("command %q refused: %s", cmd.Kind, reply.Error)
	}
	return reply, nil
}

// Close ends the control connection
func (c *Controller) Close() error {
	return c.conn.Close()
}

// Watch receives snapshots until ctx is cancelled or the server goes away.
// fn runs on the reading goroutine.
func (c *Client) Watch(ctx context.Context, fn func(*engine.GameState)) error {
	conn, err := c.Dial(ctx, RoleWatcher)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var state engine.GameState
		if err := conn.Receive(&state); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			conn.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		fn(&state)
	}
}

// DialError is returned when a websocket handshake fails
type DialError struct {
	Path string
	// StatusCode is the HTTP status of a refused upgrade; 0 if none arrived
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dial %s: %v (status %d)", e.Path, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("dial %s: %v", e.Path, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// IsServerFull reports whether a dial failed because the server was at capacity
func IsServerFull(err error) bool {
	var dialErr *DialError
	return errors.As(err, &dialErr) && dialErr.StatusCode == http.StatusServiceUnavailable
}
