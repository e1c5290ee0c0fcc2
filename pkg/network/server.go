// pkg/network/server.go
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"

	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
	"github.com/opd-ai/go-facebreak/pkg/validation"
)

// Endpoint paths served by Server
const (
	TrackPath   = "/track"
	ControlPath = "/control"
	WatchPath   = "/watch"
)

// ClientIDHeader carries the id assigned to a websocket client in the
// upgrade response.
const ClientIDHeader = "X-Client-ID"

// Role describes what a connection is allowed to do
type Role string

const (
	RoleTracker    Role = "tracker"
	RoleController Role = "controller"
	RoleWatcher    Role = "watcher"
)

// sendQueueSize bounds frames waiting for a slow client
const sendQueueSize = 16

// Reply acknowledges an inbound message
type Reply struct {
	OK      bool   `json:"ok"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServerOptions tunes connection handling. Zero values pick defaults.
type ServerOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *logging.Logger
}

// ServerStats counts traffic since the server was created
type ServerStats struct {
	Clients    int    `json:"clients"`
	Detections uint64 `json:"detections"`
	Commands   uint64 `json:"commands"`
	Rejected   uint64 `json:"rejected"`
	Snapshots  uint64 `json:"snapshots"`
	Dropped    uint64 `json:"dropped"`
}

// Server exposes one session over websockets: detectors push keypoints to
// /track, controllers send commands to /control and viewers receive
// snapshots from /watch.
type Server struct {
	runner   *engine.Runner
	game     *engine.Game
	network  config.NetworkConfig
	tracking config.TrackingConfig
	codec    Codec

	upgrader         websocket.Upgrader
	trackValidator   *validation.MessageValidator
	controlValidator *validation.MessageValidator
	logger           *logging.Logger

	clients     map[string]*client
	clientsLock sync.RWMutex

	readTimeout      time.Duration
	writeTimeout     time.Duration
	snapshotInterval time.Duration
	lastBroadcast    uint64

	httpServer *http.Server
	httpLock   sync.Mutex
	address    string

	detections atomic.Uint64
	commands   atomic.Uint64
	rejected   atomic.Uint64
	snapshots  atomic.Uint64
	dropped    atomic.Uint64
}

// client represents a connected websocket peer
type client struct {
	ID        string
	Name      string
	Role      Role
	Connected time.Time

	conn      *websocket.Conn
	codec     Codec
	send      chan []byte
	closeOnce sync.Once
}

// NewServer creates a server for the session driven by runner
func NewServer(runner *engine.Runner, opts ServerOptions) (*Server, error) {
	game := runner.Game()
	codec, err := ParseCodec(game.Config.Network.Codec)
	if err != nil {
		return nil, err
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	rate := game.Config.Network.SnapshotRate
	if rate <= 0 {
		rate = 20
	}

	return &Server{
		runner:   runner,
		game:     game,
		network:  game.Config.Network,
		tracking: game.Config.Tracking,
		codec:    codec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// detectors run in browsers served from other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		trackValidator:   validation.NewMessageValidator(validation.MaxTrackMessagesPerMin, time.Minute),
		controlValidator: validation.NewMessageValidator(validation.MaxControlMessagesPerMin, time.Minute),
		logger:           opts.Logger.With("component", "network"),
		clients:          make(map[string]*client),
		readTimeout:      opts.ReadTimeout,
		writeTimeout:     opts.WriteTimeout,
		snapshotInterval: time.Second / time.Duration(rate),
	}, nil
}

// Handler returns the websocket endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return mux
}

// Routes registers the websocket endpoints on mux
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc(TrackPath, s.handleTrack)
	mux.HandleFunc(ControlPath, s.handleControl)
	mux.HandleFunc(WatchPath, s.handleWatch)
}

// ListenAndServe serves handler on address and broadcasts snapshots until
// ctx is cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context, address string, handler http.Handler) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	if handler == nil {
		handler = s.Handler()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.readTimeout,
	}
	s.httpLock.Lock()
	s.httpServer = srv
	s.address = listener.Addr().String()
	s.httpLock.Unlock()

	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	s.logger.Info(ctx, "server listening", "address", listener.Addr().String(), "session", s.game.SessionID())

	select {
	case err := <-errCh:
		s.httpLock.Lock()
		s.address = ""
		s.httpLock.Unlock()
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections and disconnects every client
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpLock.Lock()
	srv := s.httpServer
	s.address = ""
	s.httpLock.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.Close()
	s.logger.Info(ctx, "server stopped")
	return err
}

// Address returns the address being served; empty when not listening
func (s *Server) Address() string {
	s.httpLock.Lock()
	defer s.httpLock.Unlock()
	return s.address
}

// Close disconnects all clients and releases the rate limiters
func (s *Server) Close() {
	s.clientsLock.RLock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.clientsLock.RUnlock()

	s.trackValidator.Close()
	s.controlValidator.Close()
}

// Run broadcasts snapshots to watchers at the snapshot rate until ctx is done
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Broadcast(ctx)
		}
	}
}

// Broadcast sends the current snapshot to every watcher. Nothing is sent
// when the session has not ticked since the previous broadcast.
func (s *Server) Broadcast(ctx context.Context) {
	state := s.game.GetGameState()
	if state.Tick == atomic.LoadUint64(&s.lastBroadcast) && state.Tick != 0 {
		return
	}
	atomic.StoreUint64(&s.lastBroadcast, state.Tick)

	encoded := make(map[string][]byte, 2)

	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()

	for _, c := range s.clients {
		if c.Role != RoleWatcher {
			continue
		}
		data, ok := encoded[c.codec.Name()]
		if !ok {
			var err error
			data, err = c.codec.Marshal(state)
			if err != nil {
				s.logger.Error(ctx, "failed to encode snapshot", err, "codec", c.codec.Name())
				return
			}
			encoded[c.codec.Name()] = data
		}
		if s.enqueue(c, data) {
			s.snapshots.Add(1)
		}
	}
}

// Stats returns traffic counters
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Clients:    s.ClientCount(),
		Detections: s.detections.Load(),
		Commands:   s.commands.Load(),
		Rejected:   s.rejected.Load(),
		Snapshots:  s.snapshots.Load(),
		Dropped:    s.dropped.Load(),
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	c, ctx, ok := s.accept(w, r, RoleTracker)
	if !ok {
		return
	}
	defer s.removeClient(ctx, c)

	s.readLoop(ctx, c, func(frameType int, data []byte) {
		if err := s.ingestDetection(c, frameType, data); err != nil {
			s.rejected.Add(1)
			s.logger.Debug(ctx, "detection rejected", "error", err.Error())
			s.reply(c, Reply{OK: false, Error: err.Error()})
		}
	})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	c, ctx, ok := s.accept(w, r, RoleController)
	if !ok {
		return
	}
	defer s.removeClient(ctx, c)

	s.readLoop(ctx, c, func(frameType int, data []byte) {
		cmd, err := s.submitCommand(c, frameType, data)
		if err != nil {
			s.rejected.Add(1)
			s.logger.Warn(ctx, "command rejected", "error", err.Error())
			s.reply(c, Reply{OK: false, Command: string(cmd.Kind), Error: err.Error()})
			return
		}
		s.logger.Info(ctx, "command queued", "command", string(cmd.Kind))
		s.reply(c, Reply{OK: true, Command: string(cmd.Kind)})
	})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	c, ctx, ok := s.accept(w, r, RoleWatcher)
	if !ok {
		return
	}
	defer s.removeClient(ctx, c)

	// the latest snapshot right away, then at the broadcast rate
	if data, err := c.codec.Marshal(s.game.GetGameState()); err == nil {
		s.enqueue(c, data)
	}

	// watchers only talk to keep the connection alive
	s.readLoop(ctx, c, func(int, []byte) {})
}

// accept admits and upgrades a connection, assigning it a client id
func (s *Server) accept(w http.ResponseWriter, r *http.Request, role Role) (*client, context.Context, bool) {
	codec := s.codec
	if name := r.URL.Query().Get("codec"); name != "" {
		var err error
		if codec, err = ParseCodec(name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
	}

	name := string(role)
	if raw := r.URL.Query().Get("name"); raw != "" {
		var err error
		if name, err = validation.ValidateClientName(raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
	}

	if s.ClientCount() >= s.network.MaxClients {
		s.logger.Warn(r.Context(), "rejecting connection, server full", "role", string(role))
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return nil, nil, false
	}

	id := uuid.Must(uuid.NewV4()).String()
	header := http.Header{}
	header.Set(ClientIDHeader, id)

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err.Error())
		return nil, nil, false
	}
	conn.SetReadLimit(validation.MaxMessageSize)

	c := &client{
		ID:        id,
		Name:      name,
		Role:      role,
		Connected: time.Now(),
		conn:      conn,
		codec:     codec,
		send:      make(chan []byte, sendQueueSize),
	}

	s.clientsLock.Lock()
	if len(s.clients) >= s.network.MaxClients {
		// lost the race for the last slot
		s.clientsLock.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"),
			time.Now().Add(s.writeTimeout))
		conn.Close()
		return nil, nil, false
	}
	s.clients[id] = c
	s.clientsLock.Unlock()

	ctx := logging.WithCorrelationID(context.Background(), id)
	s.logger.Info(ctx, "client connected",
		"role", string(role),
		"name", name,
		"codec", codec.Name(),
		"remote", conn.RemoteAddr().String(),
	)

	go s.writePump(ctx, c)
	return c, ctx, true
}

// readLoop reads frames until the peer goes away; each frame extends the
// read deadline, as does every pong.
func (s *Server) readLoop(ctx context.Context, c *client, handle func(frameType int, data []byte)) {
	c.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	})

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(ctx, "client read failed", "error", err.Error())
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		handle(frameType, data)
	}
}

// writePump is the only writer of a connection
func (s *Server) writePump(ctx context.Context, c *client) {
	ping := time.NewTicker(s.readTimeout * 9 / 10)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				s.logger.Debug(ctx, "client write failed", "error", err.Error())
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the client's writer; a full queue drops it
func (s *Server) enqueue(c *client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Server) reply(c *client, r Reply) {
	data, err := c.codec.Marshal(r)
	if err != nil {
		return
	}
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	if _, ok := s.clients[c.ID]; ok {
		s.enqueue(c, data)
	}
}

// removeClient unregisters a client and stops its writer
func (s *Server) removeClient(ctx context.Context, c *client) {
	c.closeOnce.Do(func() {
		s.clientsLock.Lock()
		delete(s.clients, c.ID)
		close(c.send)
		s.clientsLock.Unlock()

		s.trackValidator.Forget(c.ID)
		s.controlValidator.Forget(c.ID)

		s.logger.Info(ctx, "client removed",
			"role", string(c.Role),
			"duration", time.Since(c.Connected).Round(time.Millisecond).String(),
		)
	})
}

// ingestDetection validates one detector frame and posts it to the session mailbox
func (s *Server) ingestDetection(c *client, frameType int, data []byte) error {
	var err error
	if frameType == websocket.BinaryMessage {
		err = s.trackValidator.ValidateBinaryMessage(data, c.ID)
	} else {
		err = s.trackValidator.ValidateMessage(data, c.ID)
	}
	if err != nil {
		return err
	}

	var d tracking.Detection
	if err := codecForFrame(frameType).Unmarshal(data, &d); err != nil {
		return fmt.Errorf("invalid detection: %w", err)
	}
	if err := validation.ValidateDetection(d); err != nil {
		return err
	}
	if err := validation.ValidateKeypointIndices(d, s.tracking.RightKeypoint, s.tracking.LeftKeypoint); err != nil {
		return err
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}

	s.game.Mailbox.Post(d)
	s.detections.Add(1)
	return nil
}

// submitCommand validates one control frame and queues it on the runner
func (s *Server) submitCommand(c *client, frameType int, data []byte) (engine.Command, error) {
	var err error
	if frameType == websocket.BinaryMessage {
		err = s.controlValidator.ValidateBinaryMessage(data, c.ID)
	} else {
		err = s.controlValidator.ValidateMessage(data, c.ID)
	}
	if err != nil {
		return engine.Command{}, err
	}

	var cmd engine.Command
	if err := codecForFrame(frameType).Unmarshal(data, &cmd); err != nil {
		return engine.Command{}, fmt.Errorf("invalid command: %w", err)
	}
	valid, err := validation.ValidateCommand(cmd)
	if err != nil {
		return cmd, err
	}
	if !s.runner.Submit(valid) {
		return valid, errors.New("command queue full")
	}
	s.commands.Add(1)
	return valid, nil
}
