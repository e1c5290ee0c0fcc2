// pkg/render/engo/hud.go
package engo

import (
	"fmt"
	"strings"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-facebreak/pkg/engine"
	"github.com/opd-ai/go-facebreak/pkg/render"
)

// HUD draws the status line at the top of the window and a banner in
// the middle while the ball is not in play.
type HUD struct {
	system SpriteSystem
	font   *common.Font

	status *sprite
	banner *sprite

	statusText string
	bannerText string
}

// NewHUD creates a HUD. Without a font it tracks its text but draws nothing.
func NewHUD(system SpriteSystem, font *common.Font) *HUD {
	return &HUD{system: system, font: font}
}

// Update refreshes the HUD text for state on a canvas of the given size
func (h *HUD) Update(state *engine.GameState, width, height float32) {
	h.statusText = strings.TrimSpace(render.StatusLine(state, 0))
	h.bannerText = Banner(state)
	if h.font == nil {
		return
	}

	if h.status == nil {
		h.status = h.newText()
	}
	h.setText(h.status, h.statusText, engo.Point{X: 10, Y: 8})

	if h.banner == nil {
		h.banner = h.newText()
	}
	// centered by estimate; the font is not monospaced
	approx := float32(len(h.bannerText)) * float32(h.font.Size) * 0.5
	h.setText(h.banner, h.bannerText, engo.Point{X: (width - approx) / 2, Y: height / 2})
	h.banner.Hidden = h.bannerText == ""
}

func (h *HUD) newText() *sprite {
	s := &sprite{
		BasicEntity: ecs.NewBasic(),
		RenderComponent: common.RenderComponent{
			Color: TextColor,
			Scale: engo.Point{X: 1, Y: 1},
		},
	}
	s.Drawable = common.Text{Font: h.font}
	h.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

func (h *HUD) setText(s *sprite, text string, at engo.Point) {
	if t, ok := s.Drawable.(common.Text); !ok || t.Text != text {
		s.Drawable = common.Text{Font: h.font, Text: text}
	}
	s.Position = at
}

// StatusText returns the status line last shown
func (h *HUD) StatusText() string {
	return h.statusText
}

// BannerText returns the banner last shown; empty while playing
func (h *HUD) BannerText() string {
	return h.bannerText
}

// Banner returns the centered message for state, or "" while the ball is in play
func Banner(state *engine.GameState) string {
	switch state.Status {
	case engine.StatusIdle.String():
		return "press space to start"
	case engine.StatusCountdown.String():
		return fmt.Sprintf("%d", state.Countdown)
	case engine.StatusPaused.String():
		return "paused, space to resume"
	case engine.StatusOver.String():
		if state.Outcome == engine.OutcomeWon.String() {
			return "you won! space to play again"
		}
		return "game over, space to play again"
	}
	return ""
}
