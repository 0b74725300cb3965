// Package pptxtest builds small slide-deck packages in memory for tests.
package pptxtest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsC = "http://schemas.openxmlformats.org/drawingml/2006/chart"

	relImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relChart     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
	relThumbnail = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"

	// Widescreen slide size in EMU.
	WidescreenCx = 12192000
	WidescreenCy = 6858000
)

// Slide describes one slide of a fixture deck.
type Slide struct {
	Title      string
	Subtitle   string
	Bodies     []string
	Image      []byte
	Pictures   int
	Chart      bool
	Table      bool
	TableAlt   string
	Animated   bool
	Transition bool
	Notes      *string
	Typefaces  []string
	// Raw replaces the generated slide XML entirely.
	Raw string
}

// ThemeColor is one color scheme slot. Exactly one of RGB or LastClr is used.
type ThemeColor struct {
	Slot    string
	RGB     string
	LastClr string
}

// Theme describes one theme part.
type Theme struct {
	Name      string
	Scheme    string
	Colors    []ThemeColor
	MajorFont string
	MinorFont string
	EastAsian string
	Raw       string
}

// Deck describes a whole package.
type Deck struct {
	Cx, Cy  int64
	Slides  []Slide
	Themes  []Theme
	Masters int
	Layouts int
	Cover   []byte
	Extra   map[string][]byte
}

// Build writes the deck as a zip package.
func Build(d Deck) []byte {
	parts := map[string][]byte{}
	if d.Cx > 0 || d.Cy > 0 {
		parts["ppt/presentation.xml"] = []byte(fmt.Sprintf(
			`<?xml version="1.0" encoding="UTF-8"?><p:presentation xmlns:p=%q xmlns:r=%q><p:sldSz cx="%d" cy="%d"/></p:presentation>`,
			nsP, nsR, d.Cx, d.Cy))
	} else {
		parts["ppt/presentation.xml"] = []byte(fmt.Sprintf(`<p:presentation xmlns:p=%q/>`, nsP))
	}

	for i, t := range d.Themes {
		parts[fmt.Sprintf("ppt/theme/theme%d.xml", i+1)] = []byte(themeXML(t))
	}
	for i := 1; i <= d.Masters; i++ {
		parts[fmt.Sprintf("ppt/slideMasters/slideMaster%d.xml", i)] = []byte(fmt.Sprintf(`<p:sldMaster xmlns:p=%q/>`, nsP))
	}
	for i := 1; i <= d.Layouts; i++ {
		parts[fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i)] = []byte(fmt.Sprintf(`<p:sldLayout xmlns:p=%q/>`, nsP))
	}
	for i, s := range d.Slides {
		addSlide(parts, i+1, s)
	}
	if d.Cover != nil {
		parts["docProps/thumbnail.jpeg"] = d.Cover
		parts["_rels/.rels"] = []byte(fmt.Sprintf(
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type=%q Target="docProps/thumbnail.jpeg"/></Relationships>`,
			relThumbnail))
	}
	for name, content := range d.Extra {
		parts[name] = content
	}
	return Zip(parts)
}

// Zip packs the given parts into an archive.
func Zip(parts map[string][]byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(content); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func placeholderShape(id int, phAttrs, text string) string {
	body := ""
	if text != "" {
		body = fmt.Sprintf(`<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, escape(text))
	}
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr><p:ph %s/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>%s</p:txBody></p:sp>`,
		id, id, phAttrs, body)
}

func addSlide(parts map[string][]byte, n int, s Slide) {
	slidePart := fmt.Sprintf("ppt/slides/slide%d.xml", n)
	if s.Raw != "" {
		parts[slidePart] = []byte(s.Raw)
		return
	}

	var tree strings.Builder
	var rels strings.Builder
	id := 2
	if s.Title != "" {
		tree.WriteString(placeholderShape(id, `type="title"`, s.Title))
		id++
	}
	if s.Subtitle != "" {
		tree.WriteString(placeholderShape(id, `type="subTitle" idx="1"`, s.Subtitle))
		id++
	}
	for i, b := range s.Bodies {
		tree.WriteString(placeholderShape(id, fmt.Sprintf(`idx="%d"`, i+1), b))
		id++
	}
	for _, face := range s.Typefaces {
		tree.WriteString(fmt.Sprintf(
			`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Text %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:rPr><a:latin typeface=%q/></a:rPr><a:t>Styled</a:t></a:r></a:p></p:txBody></p:sp>`,
			id, id, face))
		id++
	}
	pictures := s.Pictures
	if s.Image != nil {
		media := fmt.Sprintf("ppt/media/image%d.png", n)
		parts[media] = s.Image
		rels.WriteString(fmt.Sprintf(`<Relationship Id="rId2" Type=%q Target="../media/image%d.png"/>`, relImage, n))
		if pictures == 0 {
			pictures = 1
		}
	}
	for i := 0; i < pictures; i++ {
		tree.WriteString(fmt.Sprintf(
			`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/></p:blipFill><p:spPr/></p:pic>`,
			id, id))
		id++
	}
	if s.Chart {
		parts[fmt.Sprintf("ppt/charts/chart%d.xml", n)] = []byte(fmt.Sprintf(`<c:chartSpace xmlns:c=%q/>`, nsC))
		rels.WriteString(fmt.Sprintf(`<Relationship Id="rId3" Type=%q Target="../charts/chart%d.xml"/>`, relChart, n))
		tree.WriteString(fmt.Sprintf(
			`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Chart"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri=%q><c:chart xmlns:c=%q r:id="rId3"/></a:graphicData></a:graphic></p:graphicFrame>`,
			id, nsC, nsC))
		id++
	}
	if s.Table {
		tree.WriteString(fmt.Sprintf(
			`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="Table" descr=%q/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr><p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tr h="370840"><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>cell</a:t></a:r></a:p></a:txBody></a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>`,
			id, s.TableAlt))
		id++
	}

	var extra strings.Builder
	if s.Transition {
		extra.WriteString(`<p:transition spd="med"><p:fade/></p:transition>`)
	}
	if s.Animated {
		extra.WriteString(`<p:timing><p:tnLst><p:par><p:cTn id="1" dur="indefinite" restart="never" nodeType="tmRoot"/></p:par></p:tnLst></p:timing>`)
	}

	parts[slidePart] = []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:sld xmlns:a=%q xmlns:r=%q xmlns:p=%q><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>%s</p:sld>`,
		nsA, nsR, nsP, tree.String(), extra.String()))

	if rels.Len() > 0 {
		parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = []byte(
			`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
				rels.String() + `</Relationships>`)
	}

	if s.Notes != nil {
		parts[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = []byte(fmt.Sprintf(
			`<p:notes xmlns:a=%q xmlns:r=%q xmlns:p=%q><p:cSld><p:spTree>%s%s</p:spTree></p:cSld></p:notes>`,
			nsA, nsR, nsP,
			placeholderShape(2, `type="sldImg"`, ""),
			placeholderShape(3, `type="body" idx="1"`, *s.Notes)))
	}
}

func themeXML(t Theme) string {
	if t.Raw != "" {
		return t.Raw
	}
	var slots strings.Builder
	for _, c := range t.Colors {
		if c.RGB != "" {
			slots.WriteString(fmt.Sprintf(`<a:%s><a:srgbClr val=%q/></a:%s>`, c.Slot, c.RGB, c.Slot))
		} else {
			slots.WriteString(fmt.Sprintf(`<a:%s><a:sysClr val="windowText" lastClr=%q/></a:%s>`, c.Slot, c.LastClr, c.Slot))
		}
	}
	font := func(tag, latin string) string {
		return fmt.Sprintf(`<a:%s><a:latin typeface=%q/><a:ea typeface=%q/><a:cs typeface=""/></a:%s>`, tag, latin, t.EastAsian, tag)
	}
	return fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><a:theme xmlns:a=%q name=%q><a:themeElements><a:clrScheme name=%q>%s</a:clrScheme><a:fontScheme name="Fonts">%s%s</a:fontScheme></a:themeElements></a:theme>`,
		nsA, t.Name, t.Scheme, slots.String(), font("majorFont", t.MajorFont), font("minorFont", t.MinorFont))
}

// OfficeTheme is a complete twelve-slot theme.
func OfficeTheme() Theme {
	return Theme{
		Name:   "Office Theme",
		Scheme: "Office",
		Colors: []ThemeColor{
			{Slot: "dk1", LastClr: "000000"},
			{Slot: "lt1", LastClr: "FFFFFF"},
			{Slot: "dk2", RGB: "44546A"},
			{Slot: "lt2", RGB: "E7E6E6"},
			{Slot: "accent1", RGB: "4472C4"},
			{Slot: "accent2", RGB: "ED7D31"},
			{Slot: "accent3", RGB: "A5A5A5"},
			{Slot: "accent4", RGB: "FFC000"},
			{Slot: "accent5", RGB: "5B9BD5"},
			{Slot: "accent6", RGB: "70AD47"},
			{Slot: "hlink", RGB: "0563C1"},
			{Slot: "folHlink", RGB: "954F72"},
		},
		MajorFont: "Calibri Light",
		MinorFont: "Calibri",
	}
}

// PNG encodes a solid image of the given size.
func PNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Text returns a pointer to s, for optional fields.
func Text(s string) *string {
	return &s
}

// FiveSlideDeck is the reference deck: an animated content slide, a content
// slide with an image, a chart slide, a blank slide and another content
// slide with an image.
func FiveSlideDeck() Deck {
	photo := PNG(640, 360, color.RGBA{R: 30, G: 120, B: 200, A: 255})
	return Deck{
		Cx:      WidescreenCx,
		Cy:      WidescreenCy,
		Themes:  []Theme{OfficeTheme()},
		Masters: 1,
		Layouts: 11,
		Slides: []Slide{
			{Title: "Quarterly Review", Bodies: []string{"Agenda"}, Animated: true, Notes: Text("Welcome everyone")},
			{Title: "Market", Bodies: []string{"Growth in every region"}, Image: photo},
			{Title: "Revenue", Chart: true},
			{},
			{Title: "Team", Bodies: []string{"Our people"}, Image: photo},
		},
	}
}
