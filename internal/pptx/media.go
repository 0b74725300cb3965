package pptx

import (
	"strings"
)

const packageRelsPart = "_rels/.rels"

// relationships returns the relationships declared for part, or nil when the
// rels part is missing or unreadable.
func relationships(c *Container, relsPart string) relationshipsXML {
	var rels relationshipsXML
	if _, err := decodePart(c, relsPart, &rels); err != nil {
		return relationshipsXML{}
	}
	return rels
}

// SlideImages returns the media parts a slide references through image
// relationships, in declaration order. External targets are ignored.
func SlideImages(c *Container, slidePart string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range relationships(c, RelsPath(slidePart)).Relationships {
		if r.TargetMode == "External" || !strings.HasSuffix(r.Type, "/image") {
			continue
		}
		target := ResolveTarget(slidePart, r.Target)
		if seen[target] || !c.Has(target) {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// CoverThumbnail locates the package-level thumbnail image, if any.
func CoverThumbnail(c *Container) (string, bool) {
	for _, r := range relationships(c, packageRelsPart).Relationships {
		if strings.HasSuffix(r.Type, "/metadata/thumbnail") {
			target := strings.TrimPrefix(r.Target, "/")
			if c.Has(target) {
				return target, true
			}
		}
	}
	for _, name := range []string{"docProps/thumbnail.jpeg", "docProps/thumbnail.jpg", "docProps/thumbnail.png"} {
		if c.Has(name) {
			return name, true
		}
	}
	return "", false
}
