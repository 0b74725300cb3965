package thumbnail

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
)

// DefaultPalette is used when no theme colors were extracted.
var DefaultPalette = []string{"#4472C4", "#ED7D31", "#A5A5A5", "#FFC000", "#5B9BD5", "#70AD47"}

// accent slots within a twelve-slot scheme.
const (
	accentStart = 4
	accentEnd   = 10
)

// Palette picks placeholder colors from the first extracted scheme: its
// accent slice when the scheme is complete enough, all of it otherwise.
func Palette(schemes []models.ColorScheme) []color.RGBA {
	var hexes []string
	if len(schemes) > 0 {
		colors := schemes[0].Colors
		switch {
		case len(colors) >= 6:
			end := accentEnd
			if end > len(colors) {
				end = len(colors)
			}
			hexes = colors[accentStart:end]
		case len(colors) > 0:
			hexes = colors
		}
	}
	out := parseAll(hexes)
	if len(out) == 0 {
		out = parseAll(DefaultPalette)
	}
	return out
}

func parseAll(hexes []string) []color.RGBA {
	var out []color.RGBA
	for _, h := range hexes {
		if c, ok := ParseHex(h); ok {
			out = append(out, c)
		}
	}
	return out
}

// ParseHex parses "#RRGGBB" or "RRGGBB".
func ParseHex(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

// Luminance is the normalized perceived brightness of c in [0, 1].
func Luminance(c color.RGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

var (
	darkInk  = color.RGBA{R: 0x1F, G: 0x1F, B: 0x1F, A: 0xff}
	lightInk = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xff}
)

// InkFor returns a text color that contrasts with background.
func InkFor(background color.RGBA) color.RGBA {
	if Luminance(background) > 0.5 {
		return darkInk
	}
	return lightInk
}
