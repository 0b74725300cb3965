package thumbnail

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	maxTitleLines = 3
	ellipsis      = "..."
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

// RenderPlaceholder draws generated slide art: a gradient background from
// the palette, a rounded card, a slide-number badge and the wrapped title.
// The result is PNG encoded.
func RenderPlaceholder(width, height, slideNumber int, title string, palette []color.RGBA) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	if len(palette) == 0 {
		palette = parseAll(DefaultPalette)
	}
	from := palette[0]
	to := from
	if len(palette) > 1 {
		to = palette[1]
	}

	w, h := float64(width), float64(height)
	dc := gg.NewContext(width, height)

	grad := gg.NewLinearGradient(0, 0, w, h)
	grad.AddColorStop(0, from)
	grad.AddColorStop(1, to)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	ink := InkFor(from)
	margin := h * 0.08
	cardX, cardY := margin, margin
	cardW, cardH := w-2*margin, h-2*margin
	dc.SetRGBA255(int(ink.R), int(ink.G), int(ink.B), 28)
	dc.DrawRoundedRectangle(cardX, cardY, cardW, cardH, h*0.05)
	dc.Fill()

	badgeR := h * 0.07
	badgeX, badgeY := cardX+badgeR*1.6, cardY+badgeR*1.6
	dc.SetColor(ink)
	dc.DrawCircle(badgeX, badgeY, badgeR)
	dc.Fill()
	dc.SetFontFace(face(boldFont, badgeR))
	dc.SetColor(from)
	dc.DrawStringAnchored(strconv.Itoa(slideNumber), badgeX, badgeY, 0.5, 0.35)

	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Slide %d", slideNumber)
	}
	fontSize := h * 0.09
	dc.SetFontFace(face(boldFont, fontSize))
	dc.SetColor(ink)
	lines := WrapTitle(func(s string) float64 {
		lw, _ := dc.MeasureString(s)
		return lw
	}, title, cardW*0.85, maxTitleLines)
	lineHeight := fontSize * 1.3
	top := cardY + cardH/2 - lineHeight*float64(len(lines))/2 + lineHeight/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, w/2, top+float64(i)*lineHeight, 0.5, 0.35)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMinimal draws the last-resort image: flat gray with the slide number.
func RenderMinimal(width, height, slideNumber int) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	dc := gg.NewContext(width, height)
	dc.SetRGB255(0xB0, 0xB0, 0xB0)
	dc.Clear()
	dc.SetFontFace(face(regularFont, float64(height)*0.3))
	dc.SetRGB255(0x40, 0x40, 0x40)
	dc.DrawStringAnchored(strconv.Itoa(slideNumber), float64(width)/2, float64(height)/2, 0.5, 0.35)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode fallback: %w", err)
	}
	return buf.Bytes(), nil
}

// WrapTitle greedily wraps words to maxWidth and keeps at most maxLines
// lines. When text is cut, the last kept line ends with an ellipsis that
// still fits. A single word wider than maxWidth is truncated the same way.
func WrapTitle(measure func(string) float64, text string, maxWidth float64, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || maxLines <= 0 {
		return nil
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth || current == "" {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)

	truncated := len(lines) > maxLines
	if truncated {
		lines = lines[:maxLines]
	}
	for i, line := range lines {
		last := i == len(lines)-1
		if measure(line) > maxWidth || (last && truncated) {
			lines[i] = fitWithEllipsis(measure, line, maxWidth, last && truncated)
		}
	}
	return lines
}

func fitWithEllipsis(measure func(string) float64, line string, maxWidth float64, force bool) string {
	runes := []rune(line)
	if !force && measure(line) <= maxWidth {
		return line
	}
	for n := len(runes); n > 0; n-- {
		candidate := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if measure(candidate) <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}
