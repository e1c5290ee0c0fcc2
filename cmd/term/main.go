// cmd/term/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-facebreak/pkg/audio"
	"github.com/opd-ai/go-facebreak/pkg/config"
	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/render"
)

// frameInterval is how often the screen is redrawn
const frameInterval = 33 * time.Millisecond

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file (.json or .toml)")
	preset := flag.String("preset", "", "Board preset to apply (local play only)")
	serverAddr := flag.String("server", "", "Server address; empty plays locally")
	logPath := flag.String("log", "", "Write logs to this file; the screen is not a log")
	sound := flag.Bool("sound", false, "Play sound effects")
	flag.Parse()

	// tcell owns stdout, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewLoggerWithWriter(logOut, logging.ParseLevel(os.Getenv("FACEBREAK_LOG_LEVEL")))

	if err := run(*configPath, *preset, *serverAddr, *sound, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, preset, serverAddr string, sound bool, logger *logging.Logger) error {
	ctx := context.Background()

	var session *render.Session
	if serverAddr == "" {
		gameConfig, err := config.LoadConfigWithPreset(configPath, preset)
		if err != nil {
			return err
		}
		if err := config.ApplyEnvironmentOverrides(gameConfig); err != nil {
			return err
		}
		if session, err = render.StartLocal(ctx, gameConfig, logger); err != nil {
			return err
		}
	} else {
		var err error
		if session, err = render.Connect(ctx, serverAddr, true, logger); err != nil {
			return err
		}
	}
	defer session.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	player := audio.NewPlayer(0.5, logger)
	defer player.Close()
	if sound {
		if err := player.Initialize(); err != nil {
			logger.Warn(ctx, "sound disabled", "error", err.Error())
		}
		if session.Events != nil {
			player.Attach(session.Events)
		}
	}

	t := newTerminal(screen, session, logger)
	if sound && session.Events == nil {
		t.onFrame = player.Observe
	}
	return t.loop()
}

// terminal runs the draw and input loop on one tcell screen
type terminal struct {
	screen   tcell.Screen
	renderer *render.TerminalRenderer
	session  *render.Session
	pointer  *render.PointerTracker
	logger   *logging.Logger
	onFrame  func(*engine.GameState)

	lastSeq uint64
}

func newTerminal(screen tcell.Screen, session *render.Session, logger *logging.Logger) *terminal {
	return &terminal{
		screen:   screen,
		renderer: render.NewTerminalRenderer(screen),
		session:  session,
		pointer:  render.NewPointerTracker(render.DefaultPointerInterval),
		logger:   logger,
	}
}

func (t *terminal) loop() error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(events)
		for {
			// nil once the screen is finalised
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok || !t.handleEvent(ev) {
				return nil
			}
		case err := <-t.session.Done():
			if render.IsShutdown(err) {
				return nil
			}
			return fmt.Errorf("session ended: %w", err)
		case <-ticker.C:
			t.draw()
		}
	}
}

// draw renders the newest snapshot if it has not been drawn yet
func (t *terminal) draw() {
	state, seq := t.session.Buffer.Latest()
	if state == nil || seq == t.lastSeq {
		return
	}
	t.lastSeq = seq
	render.Draw(t.renderer, state)
	if t.onFrame != nil {
		t.onFrame(state)
	}
}

// handleEvent reacts to one terminal event; false means quit
func (t *terminal) handleEvent(ev tcell.Event) bool {
	state, _ := t.session.Buffer.Latest()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return false
			}
			t.press(ev.Rune(), state)
		}
	case *tcell.EventMouse:
		x, y := ev.Position()
		d, ok := t.pointer.Detection(t.renderer.CellToWorld(x, y), state, ev.When())
		if ok {
			if err := t.session.Controls.Track(d); err != nil {
				t.logger.Debug(context.Background(), "pointer detection dropped", "error", err.Error())
			}
		}
	case *tcell.EventResize:
		t.screen.Sync()
		t.lastSeq = 0
	}
	return true
}

func (t *terminal) press(key rune, state *engine.GameState) {
	status := engine.StatusIdle.String()
	if state != nil {
		status = state.Status
	}
	cmd, ok := render.CommandForKey(key, status)
	if !ok {
		return
	}
	if err := t.session.Controls.Command(cmd); err != nil {
		t.logger.Warn(context.Background(), "command failed", "command", string(cmd.Kind), "error", err.Error())
	}
}
