package pptx

import (
	"encoding/xml"
	"strings"
)

// Field names match on local element names, so the p:, a: and c: prefixes
// used by different producers all decode the same way.

type presentationXML struct {
	SlideSize *struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

type themeXML struct {
	Name     string `xml:"name,attr"`
	Elements struct {
		ColorScheme *colorSchemeXML `xml:"clrScheme"`
		FontScheme  *struct {
			Major fontCollectionXML `xml:"majorFont"`
			Minor fontCollectionXML `xml:"minorFont"`
		} `xml:"fontScheme"`
	} `xml:"themeElements"`
}

type fontCollectionXML struct {
	Latin       typefaceXML `xml:"latin"`
	EastAsian   typefaceXML `xml:"ea"`
	ComplexText typefaceXML `xml:"cs"`
}

type typefaceXML struct {
	Typeface string `xml:"typeface,attr"`
}

type colorSchemeXML struct {
	Name              string     `xml:"name,attr"`
	Dark1             *colorSlot `xml:"dk1"`
	Light1            *colorSlot `xml:"lt1"`
	Dark2             *colorSlot `xml:"dk2"`
	Light2            *colorSlot `xml:"lt2"`
	Accent1           *colorSlot `xml:"accent1"`
	Accent2           *colorSlot `xml:"accent2"`
	Accent3           *colorSlot `xml:"accent3"`
	Accent4           *colorSlot `xml:"accent4"`
	Accent5           *colorSlot `xml:"accent5"`
	Accent6           *colorSlot `xml:"accent6"`
	Hyperlink         *colorSlot `xml:"hlink"`
	FollowedHyperlink *colorSlot `xml:"folHlink"`
}

// slots returns the twelve scheme slots in canonical order.
func (s *colorSchemeXML) slots() []*colorSlot {
	return []*colorSlot{
		s.Dark1, s.Light1, s.Dark2, s.Light2,
		s.Accent1, s.Accent2, s.Accent3, s.Accent4, s.Accent5, s.Accent6,
		s.Hyperlink, s.FollowedHyperlink,
	}
}

type colorSlot struct {
	RGB *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	System *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

type slideXML struct {
	CommonData struct {
		Tree shapeTreeXML `xml:"spTree"`
	} `xml:"cSld"`
}

type shapeTreeXML struct {
	Shapes   []shapeXML        `xml:"sp"`
	Pictures []pictureXML      `xml:"pic"`
	Frames   []graphicFrameXML `xml:"graphicFrame"`
	Groups   []shapeTreeXML    `xml:"grpSp"`
}

type shapeXML struct {
	NonVisual struct {
		Props struct {
			Placeholder *placeholderXML `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	Text *textBodyXML `xml:"txBody"`
}

type placeholderXML struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

type textBodyXML struct {
	Paragraphs []struct {
		Runs []struct {
			Text string `xml:"t"`
		} `xml:"r"`
	} `xml:"p"`
}

type pictureXML struct {
	Fill struct {
		Blip struct {
			Embed string `xml:"embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
}

type graphicFrameXML struct {
	Graphic struct {
		Data struct {
			URI   string    `xml:"uri,attr"`
			Table *struct{} `xml:"tbl"`
			Chart *struct{} `xml:"chart"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// flatten returns the tree with grouped shapes lifted to the top level.
func (t shapeTreeXML) flatten() shapeTreeXML {
	out := shapeTreeXML{
		Shapes:   append([]shapeXML(nil), t.Shapes...),
		Pictures: append([]pictureXML(nil), t.Pictures...),
		Frames:   append([]graphicFrameXML(nil), t.Frames...),
	}
	for _, g := range t.Groups {
		inner := g.flatten()
		out.Shapes = append(out.Shapes, inner.Shapes...)
		out.Pictures = append(out.Pictures, inner.Pictures...)
		out.Frames = append(out.Frames, inner.Frames...)
	}
	return out
}

// text joins every run fragment in the body with single spaces.
func (b *textBodyXML) text() string {
	if b == nil {
		return ""
	}
	var fragments []string
	for _, p := range b.Paragraphs {
		for _, r := range p.Runs {
			if s := strings.TrimSpace(r.Text); s != "" {
				fragments = append(fragments, s)
			}
		}
	}
	return strings.TrimSpace(strings.Join(fragments, " "))
}

func decodePart(c *Container, name string, v any) (bool, error) {
	b, ok := c.ReadPartBytes(name)
	if !ok {
		return false, nil
	}
	if err := xml.Unmarshal(b, v); err != nil {
		return true, err
	}
	return true, nil
}
