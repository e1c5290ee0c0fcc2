// pkg/render/engo/scene.go
package engo

import (
	"context"
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/render"
)

// SceneOptions configures a GameScene
type SceneOptions struct {
	// Mouse lets the pointer drive the paddle
	Mouse bool
	// OnFrame runs after every newly drawn snapshot, on the render goroutine
	OnFrame func(state *engine.GameState)
	// OnExit runs when the window closes
	OnExit func()
	Logger *logging.Logger
}

// GameScene represents the main game scene in Engo
type GameScene struct {
	source   StateSource
	controls render.Controls
	opts     SceneOptions
	logger   *logging.Logger

	assets   *AssetManager
	camera   *Camera
	renderer *EngoRenderer
	input    *InputSystem
	frames   *FrameSystem
}

// NewGameScene creates a scene drawing snapshots from source and sending
// input to controls.
func NewGameScene(source StateSource, controls render.Controls, opts SceneOptions) *GameScene {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &GameScene{
		source:   source,
		controls: controls,
		opts:     opts,
		logger:   logger.With("component", "scene"),
		assets:   NewAssetManager(),
		camera:   NewCamera(),
	}
}

// Type returns the scene type (required by Engo)
func (scene *GameScene) Type() string {
	return "FaceBreak"
}

// Preload is called before the scene starts (required by Engo)
func (scene *GameScene) Preload() {
	if err := scene.assets.LoadFont(); err != nil {
		scene.logger.Warn(context.Background(), "HUD font unavailable, text disabled", "error", err.Error())
	}
}

// Setup is called when the scene starts (required by Engo)
func (scene *GameScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Error(context.Background(), "scene setup failed", fmt.Errorf("updater is %T, not *ecs.World", u))
		return
	}

	common.SetBackground(BackgroundColor)
	SetupInputBindings()

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	world.AddSystem(NewCameraSystem(scene.camera))

	scene.renderer = NewEngoRenderer(renderSystem, scene.camera, scene.assets)

	scene.input = NewInputSystem(scene.controls, scene.camera, scene.source, scene.logger)
	scene.input.Mouse = scene.opts.Mouse
	world.AddSystem(scene.input)

	scene.frames = NewFrameSystem(scene.source, scene.renderer, scene.opts.OnFrame)
	world.AddSystem(scene.frames)

	scene.logger.Info(context.Background(), "scene ready", "mouse", scene.opts.Mouse)
}

// Exit is called when the window closes
func (scene *GameScene) Exit() {
	if scene.opts.OnExit != nil {
		scene.opts.OnExit()
	}
	engo.Exit()
}

// FrameSystem draws the newest snapshot once per engo frame. Frames with
// no new snapshot leave the sprites as they are.
type FrameSystem struct {
	source   StateSource
	renderer entity.Renderer
	onFrame  func(*engine.GameState)
	lastSeq  uint64
	drawn    uint64
}

// NewFrameSystem creates a frame system; onFrame may be nil
func NewFrameSystem(source StateSource, renderer entity.Renderer, onFrame func(*engine.GameState)) *FrameSystem {
	return &FrameSystem{source: source, renderer: renderer, onFrame: onFrame}
}

// Remove satisfies the ecs.System interface
func (fs *FrameSystem) Remove(ecs.BasicEntity) {}

// Update draws the latest snapshot if it is new
func (fs *FrameSystem) Update(float32) {
	state, seq := fs.source.Latest()
	if state == nil || seq == fs.lastSeq {
		return
	}
	fs.lastSeq = seq
	render.Draw(fs.renderer, state)
	fs.drawn++
	if fs.onFrame != nil {
		fs.onFrame(state)
	}
}

// Drawn returns how many snapshots have been drawn
func (fs *FrameSystem) Drawn() uint64 {
	return fs.drawn
}
