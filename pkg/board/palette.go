// pkg/board/palette.go
package board

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// namedColors covers the names accepted in configuration files
var namedColors = map[string]color.RGBA{
	"red":    {R: 0xff, A: 0xff},
	"green":  {G: 0x80, A: 0xff},
	"blue":   {B: 0xff, A: 0xff},
	"yellow": {R: 0xff, G: 0xff, A: 0xff},
	"orange": {R: 0xff, G: 0xa5, A: 0xff},
	"purple": {R: 0x80, B: 0x80, A: 0xff},
	"pink":   {R: 0xff, G: 0xc0, B: 0xcb, A: 0xff},
	"brown":  {R: 0xa5, G: 0x2a, B: 0x2a, A: 0xff},
	"grey":   {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"gray":   {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"black":  {A: 0xff},
	"white":  {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"cyan":   {G: 0xff, B: 0xff, A: 0xff},
}

// DefaultPaletteNames is the brick colour cycle used when none is configured
var DefaultPaletteNames = []string{
	"red", "green", "blue", "yellow", "orange",
	"purple", "pink", "brown", "grey", "black",
}

// DefaultPalette returns DefaultPaletteNames as colours
func DefaultPalette() []color.RGBA {
	p, _ := ParsePalette(DefaultPaletteNames)
	return p
}

// ParsePalette converts colour names or #rrggbb strings. An empty list
// yields the default palette.
func ParsePalette(names []string) ([]color.RGBA, error) {
	if len(names) == 0 {
		return DefaultPalette(), nil
	}
	palette := make([]color.RGBA, 0, len(names))
	for _, name := range names {
		c, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		palette = append(palette, c)
	}
	return palette, nil
}

// ParseColor accepts a colour name or a #rrggbb hex string
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if len(s) == 7 && s[0] == '#' {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
		}
	}
	return color.RGBA{}, fmt.Errorf("unknown colour %q", s)
}
