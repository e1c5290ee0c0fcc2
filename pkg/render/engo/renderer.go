// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/entity"
	"github.com/opd-ai/go-facebreak/pkg/physics"
)

// SpriteSystem is the part of common.RenderSystem the renderer needs
type SpriteSystem interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// sprite is one drawn entity. It is created once and then moved, recoloured
// or hidden every frame.
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent

	seen bool
}

// EngoRenderer implements entity.Renderer on top of an engo render system
type EngoRenderer struct {
	system SpriteSystem
	camera *Camera
	assets *AssetManager
	hud    *HUD

	ball      *sprite
	paddle    *sprite
	deathLine *sprite
	bricks    map[entity.ID]*sprite

	frames uint64
}

// NewEngoRenderer creates a renderer adding its sprites to system
func NewEngoRenderer(system SpriteSystem, camera *Camera, assets *AssetManager) *EngoRenderer {
	return &EngoRenderer{
		system: system,
		camera: camera,
		assets: assets,
		hud:    NewHUD(system, assets.Font()),
		bricks: make(map[entity.ID]*sprite),
	}
}

func (r *EngoRenderer) newSprite(drawable common.Drawable, c color.Color) *sprite {
	s := &sprite{
		BasicEntity: ecs.NewBasic(),
		RenderComponent: common.RenderComponent{
			Drawable: drawable,
			Color:    c,
			Scale:    engo.Point{X: 1, Y: 1},
		},
	}
	r.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

func (r *EngoRenderer) place(s *sprite, rect physics.Rect) {
	s.SpaceComponent.Position, s.SpaceComponent.Width, s.SpaceComponent.Height = r.camera.RectToScreen(rect)
	s.Hidden = false
	s.seen = true
}

// SetField implements render.FieldSizer
func (r *EngoRenderer) SetField(width, height float64) {
	r.camera.SetField(width, height)
}

// Clear implements entity.Renderer. Sprites not drawn again before Present are hidden.
func (r *EngoRenderer) Clear() {
	for _, s := range r.sprites() {
		s.seen = false
	}
}

// Present implements entity.Renderer
func (r *EngoRenderer) Present() {
	for _, s := range r.sprites() {
		if !s.seen {
			s.Hidden = true
		}
	}
	r.frames++
}

func (r *EngoRenderer) sprites() []*sprite {
	all := make([]*sprite, 0, len(r.bricks)+3)
	for _, s := range []*sprite{r.ball, r.paddle, r.deathLine} {
		if s != nil {
			all = append(all, s)
		}
	}
	for _, s := range r.bricks {
		all = append(all, s)
	}
	return all
}

// RenderBrick implements entity.Renderer
func (r *EngoRenderer) RenderBrick(brick *entity.Brick) {
	s, ok := r.bricks[brick.ID]
	if !ok {
		s = r.newSprite(r.assets.Brick(), brick.Color)
		r.bricks[brick.ID] = s
	}
	s.Color = brick.Color
	r.place(s, brick.Bounds())
}

// RenderPaddle implements entity.Renderer
func (r *EngoRenderer) RenderPaddle(paddle *entity.Paddle) {
	if r.paddle == nil {
		r.paddle = r.newSprite(r.assets.Paddle(), PaddleColor)
	}
	r.place(r.paddle, paddle.Bounds())
}

// RenderBall implements entity.Renderer
func (r *EngoRenderer) RenderBall(ball *entity.Ball) {
	if r.ball == nil {
		r.ball = r.newSprite(r.assets.Ball(), BallColor)
	}
	r.place(r.ball, ball.Bounds())
}

// RenderStatus implements render.StatusRenderer: the death line and the HUD text
func (r *EngoRenderer) RenderStatus(state *engine.GameState) {
	if r.deathLine == nil {
		r.deathLine = r.newSprite(r.assets.DeathLine(), DeathLineColor)
	}
	r.place(r.deathLine, physics.Rect{
		Center: physics.Vector2D{X: state.Field.Width / 2, Y: state.Field.DeathLine},
		Width:  state.Field.Width,
		Height: 2 / r.camera.Scale(),
	})

	r.prune(state.Bricks)

	w, h := r.camera.Window()
	r.hud.Update(state, float32(w), float32(h))
}

// prune removes sprites of bricks that left the board. Destroyed bricks
// stay in the snapshot and are only hidden.
func (r *EngoRenderer) prune(bricks []engine.BrickState) {
	live := make(map[entity.ID]bool, len(bricks))
	for _, b := range bricks {
		live[b.ID] = true
	}
	for id, s := range r.bricks {
		if !live[id] {
			r.system.Remove(s.BasicEntity)
			delete(r.bricks, id)
		}
	}
}

// BrickSprites returns the number of brick sprites held
func (r *EngoRenderer) BrickSprites() int {
	return len(r.bricks)
}

// Frames returns the number of presented frames
func (r *EngoRenderer) Frames() uint64 {
	return r.frames
}
