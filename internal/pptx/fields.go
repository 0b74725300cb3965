package pptx

import (
	"errors"
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
)

const presentationPart = "ppt/presentation.xml"

// emuPerInch converts slide-size units to inches.
const emuPerInch = 914400.0

const aspectTolerance = 0.05

var errNoSlideSize = errors.New("slide size not declared")

type knownRatio struct {
	ratio  float64
	aspect models.AspectRatio
	label  string
}

var knownRatios = []knownRatio{
	{16.0 / 9.0, models.AspectWidescreen, "Widescreen 16:9"},
	{4.0 / 3.0, models.AspectStandard, "Standard 4:3"},
	{1.414, models.AspectA4, "A4"},
	{1 / 1.414, models.AspectA4, "A4"},
	{1.294, models.AspectLetter, "US Letter"},
	{1 / 1.294, models.AspectLetter, "US Letter"},
}

// slideSize returns the declared slide width and height in EMU.
func slideSize(c *Container) (int64, int64, error) {
	var p presentationXML
	found, err := decodePart(c, presentationPart, &p)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse %s: %w", presentationPart, err)
	}
	if !found || p.SlideSize == nil || p.SlideSize.Cx <= 0 || p.SlideSize.Cy <= 0 {
		return 0, 0, errNoSlideSize
	}
	return p.SlideSize.Cx, p.SlideSize.Cy, nil
}

// ClassifyAspect maps a width/height pair to the nearest known ratio.
// Missing dimensions give Widescreen; a ratio further than the tolerance
// from every known ratio gives Custom.
func ClassifyAspect(width, height float64) models.AspectRatio {
	if width <= 0 || height <= 0 {
		return models.AspectWidescreen
	}
	k, ok := nearestRatio(width, height)
	if !ok {
		return models.AspectCustom
	}
	return k.aspect
}

func nearestRatio(width, height float64) (knownRatio, bool) {
	if width <= 0 || height <= 0 {
		return knownRatio{}, false
	}
	ratio := width / height
	best := -1
	bestDiff := math.MaxFloat64
	for i, k := range knownRatios {
		if d := math.Abs(ratio - k.ratio); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	if best < 0 || bestDiff > aspectTolerance {
		return knownRatio{}, false
	}
	return knownRatios[best], true
}

func extractAspectRatio(c *Container) (models.AspectRatio, error) {
	cx, cy, err := slideSize(c)
	if err != nil {
		return models.AspectWidescreen, err
	}
	return ClassifyAspect(float64(cx), float64(cy)), nil
}

// SizeLabel renders a human label such as "Widescreen 16:9 (13.33 × 7.5 in)".
func SizeLabel(cx, cy int64) string {
	name := "Custom"
	if k, ok := nearestRatio(float64(cx), float64(cy)); ok {
		name = k.label
	}
	return fmt.Sprintf("%s (%s × %s in)", name, inches(cx), inches(cy))
}

func inches(emu int64) string {
	s := fmt.Sprintf("%.2f", float64(emu)/emuPerInch)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func extractSizeLabel(c *Container) (*string, error) {
	cx, cy, err := slideSize(c)
	if err != nil {
		return nil, err
	}
	label := SizeLabel(cx, cy)
	return &label, nil
}

// themeReferenceMarker prefixes typeface tokens such as "+mj-lt" that point
// back at the theme rather than naming a font.
const themeReferenceMarker = "+"

const fontSampleSlides = 5

var typefaceAttr = regexp.MustCompile(`typeface="([^"]*)"`)

func extractFonts(c *Container) ([]string, error) {
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || strings.HasPrefix(name, themeReferenceMarker) {
			return
		}
		seen[name] = struct{}{}
	}

	var errs []error
	for _, part := range c.PartsMatching(PartThemes) {
		var t themeXML
		if _, err := decodePart(c, part, &t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", part, err))
			continue
		}
		if fs := t.Elements.FontScheme; fs != nil {
			for _, coll := range []fontCollectionXML{fs.Major, fs.Minor} {
				add(coll.Latin.Typeface)
				add(coll.EastAsian.Typeface)
				add(coll.ComplexText.Typeface)
			}
		}
	}

	slides := c.PartsMatching(PartSlides)
	if len(slides) > fontSampleSlides {
		slides = slides[:fontSampleSlides]
	}
	for _, part := range slides {
		raw, _ := c.ReadPart(part)
		for _, m := range typefaceAttr.FindAllStringSubmatch(raw, -1) {
			add(m[1])
		}
	}

	fonts := make([]string, 0, len(seen))
	for name := range seen {
		fonts = append(fonts, name)
	}
	sort.Strings(fonts)
	if len(fonts) == 0 && len(errs) > 0 {
		return fonts, errors.Join(errs...)
	}
	return fonts, nil
}

func extractColorSchemes(c *Container) ([]models.ColorScheme, error) {
	schemes := []models.ColorScheme{}
	var errs []error
	for _, part := range c.PartsMatching(PartThemes) {
		var t themeXML
		if _, err := decodePart(c, part, &t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", part, err))
			continue
		}
		cs := t.Elements.ColorScheme
		if cs == nil {
			continue
		}
		var colors []string
		for _, slot := range cs.slots() {
			if hex, ok := resolveColor(slot); ok {
				colors = append(colors, hex)
			}
		}
		if len(colors) == 0 {
			continue
		}
		name := cs.Name
		if name == "" {
			name = t.Name
		}
		if name == "" {
			name = strings.TrimSuffix(path.Base(part), ".xml")
		}
		schemes = append(schemes, models.ColorScheme{Name: name, Colors: colors})
	}
	if len(schemes) == 0 && len(errs) > 0 {
		return schemes, errors.Join(errs...)
	}
	return schemes, nil
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// resolveColor returns the slot's explicit color, or the last explicit value
// recorded for a system color.
func resolveColor(slot *colorSlot) (string, bool) {
	if slot == nil {
		return "", false
	}
	var v string
	switch {
	case slot.RGB != nil:
		v = slot.RGB.Val
	case slot.System != nil:
		v = slot.System.LastClr
	}
	if !hexColor.MatchString(v) {
		return "", false
	}
	return "#" + strings.ToUpper(v), true
}

var (
	animationMarkers  = []string{"<p:timing", "<p:anim", "<p:animEffect", "<p:animMotion"}
	transitionMarkers = []string{"<p:transition", "<p15:prstTrans"}
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true, ".svg": true, ".emf": true, ".wmf": true,
}

// anySlideContains scans slide parts in order and stops at the first match.
func anySlideContains(c *Container, markers []string) (bool, error) {
	for _, part := range c.PartsMatching(PartSlides) {
		raw, _ := c.ReadPart(part)
		for _, m := range markers {
			if strings.Contains(raw, m) {
				return true, nil
			}
		}
	}
	return false, nil
}

func detectAnimations(c *Container) (bool, error) {
	return anySlideContains(c, animationMarkers)
}

func detectTransitions(c *Container) (bool, error) {
	return anySlideContains(c, transitionMarkers)
}

func detectSpeakerNotes(c *Container) (bool, error) {
	return c.CountParts(PartNotesSlides) > 0, nil
}

func detectCharts(c *Container) (bool, error) {
	return c.CountParts(PartCharts) > 0, nil
}

func detectImages(c *Container) (bool, error) {
	for _, part := range c.PartsMatching(PartMedia) {
		if imageExtensions[strings.ToLower(path.Ext(part))] {
			return true, nil
		}
	}
	return false, nil
}

func countMasters(c *Container) (int, error) {
	return c.CountParts(PartSlideMasters), nil
}

func countLayouts(c *Container) (int, error) {
	return c.CountParts(PartSlideLayouts), nil
}

func countSlides(c *Container) (int, error) {
	n := c.CountParts(PartSlides)
	if n == 0 {
		return 1, errors.New("no slide parts")
	}
	return n, nil
}

// SoftwareCompatibility derives an advisory list of applications that can
// open the deck. It is not a verified matrix.
func SoftwareCompatibility(hasAnimations, hasTransitions bool) []string {
	out := []string{"Microsoft PowerPoint 2016+", "Microsoft PowerPoint for Microsoft 365"}
	if hasAnimations || hasTransitions {
		out = append(out, "Google Slides (limited animation support)")
	} else {
		out = append(out, "Google Slides")
	}
	return append(out, "Apple Keynote", "LibreOffice Impress", "WPS Presentation")
}
