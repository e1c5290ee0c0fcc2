// pkg/render/engo/assets.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"
)

// FontURL is the resource name the HUD font is registered under
const FontURL = "fonts/goregular.ttf"

// Palette for everything that is not a brick
var (
	BackgroundColor = color.RGBA{0x10, 0x10, 0x18, 0xff}
	BallColor       = color.RGBA{0xff, 0xd7, 0x00, 0xff}
	PaddleColor     = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	DeathLineColor  = color.RGBA{0xc0, 0x30, 0x30, 0x80}
	TextColor       = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// AssetManager holds the drawables shared by all sprites. Shapes are
// drawn by engo's shape shader, so only the font needs loading.
type AssetManager struct {
	ball      common.Drawable
	paddle    common.Drawable
	brick     common.Drawable
	deathLine common.Drawable

	fontSize float64
	font     *common.Font
}

// NewAssetManager creates the shape drawables. The font is loaded by LoadFont.
func NewAssetManager() *AssetManager {
	return &AssetManager{
		ball:      common.Circle{},
		paddle:    common.Rectangle{},
		brick:     common.Rectangle{BorderWidth: 1, BorderColor: BackgroundColor},
		deathLine: common.Rectangle{},
		fontSize:  20,
	}
}

// LoadFont registers the embedded Go font with engo and prepares it for
// text drawables.
func (am *AssetManager) LoadFont() error {
	if err := engo.Files.LoadReaderData(FontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	font := &common.Font{
		URL:  FontURL,
		FG:   TextColor,
		Size: am.fontSize,
	}
	if err := font.CreatePreloaded(); err != nil {
		return fmt.Errorf("prepare font: %w", err)
	}
	am.font = font
	return nil
}

// Font returns the HUD font, nil until LoadFont succeeds
func (am *AssetManager) Font() *common.Font {
	return am.font
}

// Ball returns the ball drawable
func (am *AssetManager) Ball() common.Drawable {
	return am.ball
}

// Paddle returns the paddle drawable
func (am *AssetManager) Paddle() common.Drawable {
	return am.paddle
}

// Brick returns the brick drawable; the colour comes from the render component
func (am *AssetManager) Brick() common.Drawable {
	return am.brick
}

// DeathLine returns the drawable marking the death line
func (am *AssetManager) DeathLine() common.Drawable {
	return am.deathLine
}
