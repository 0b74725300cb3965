// Package pptx reads packaged slide decks (the zip-of-XML-parts format) and
// derives presentation metadata and per-slide facts from them. Missing or
// malformed parts never fail a read: every accessor reports absence instead.
package pptx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrMalformedContainer is returned by Open when the payload cannot be indexed
// as an archive at all.
var ErrMalformedContainer = errors.New("malformed container")

const (
	maxPartSize  = 64 << 20
	maxPartCount = 10000
)

// PartKind selects a family of parts by path pattern.
type PartKind int

const (
	PartSlides PartKind = iota
	PartNotesSlides
	PartSlideMasters
	PartSlideLayouts
	PartThemes
	PartCharts
	PartMedia
)

var partPatterns = map[PartKind]*regexp.Regexp{
	PartSlides:       regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`),
	PartNotesSlides:  regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`),
	PartSlideMasters: regexp.MustCompile(`^ppt/slideMasters/slideMaster(\d+)\.xml$`),
	PartSlideLayouts: regexp.MustCompile(`^ppt/slideLayouts/slideLayout(\d+)\.xml$`),
	PartThemes:       regexp.MustCompile(`^ppt/theme/theme(\d+)\.xml$`),
	PartCharts:       regexp.MustCompile(`^ppt/charts/chart(\d+)\.xml$`),
	PartMedia:        regexp.MustCompile(`^ppt/media/[^/]*?(\d*)\.[A-Za-z0-9]+$`),
}

// Container is an immutable in-memory index of part path to content.
type Container struct {
	parts map[string][]byte
	names []string
	// skipped counts entries that could not be read.
	skipped int
}

// Open indexes data as a package. Unreadable entries are skipped; only a
// payload that is not an archive at all yields ErrMalformedContainer.
func Open(data []byte) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}

	c := &Container{parts: make(map[string][]byte, len(zr.File))}
	for i, f := range zr.File {
		if i >= maxPartCount {
			c.skipped += len(zr.File) - i
			break
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > maxPartSize {
			c.skipped++
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			c.skipped++
			continue
		}
		name := strings.TrimPrefix(f.Name, "/")
		if _, dup := c.parts[name]; !dup {
			c.names = append(c.names, name)
		}
		c.parts[name] = content
	}
	sort.Strings(c.names)
	return c, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	// Declared sizes are untrusted; cap what is actually inflated.
	content, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", f.Name, maxPartSize)
	}
	return content, nil
}

// Len reports the number of indexed parts.
func (c *Container) Len() int {
	return len(c.names)
}

// Skipped reports how many archive entries were unreadable.
func (c *Container) Skipped() int {
	return c.skipped
}

// Has reports whether the part exists.
func (c *Container) Has(name string) bool {
	_, ok := c.parts[name]
	return ok
}

// ReadPart returns the part as text.
func (c *Container) ReadPart(name string) (string, bool) {
	b, ok := c.parts[name]
	if !ok {
		return "", false
	}
	return string(b), true
}

// ReadPartBytes returns the raw part content. Callers must not modify it.
func (c *Container) ReadPartBytes(name string) ([]byte, bool) {
	b, ok := c.parts[name]
	return b, ok
}

// PartsMatching returns the parts of the given kind ordered by their embedded
// number, so slide2 sorts before slide10.
func (c *Container) PartsMatching(kind PartKind) []string {
	re, ok := partPatterns[kind]
	if !ok {
		return nil
	}
	type indexed struct {
		name string
		n    int
	}
	var matches []indexed
	for _, name := range c.names {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = -1
		}
		matches = append(matches, indexed{name: name, n: n})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].n != matches[j].n {
			return matches[i].n < matches[j].n
		}
		return matches[i].name < matches[j].name
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// CountParts returns the number of parts of the given kind.
func (c *Container) CountParts(kind PartKind) int {
	return len(c.PartsMatching(kind))
}

// RelsPath returns the relationship part that belongs to a part,
// e.g. ppt/slides/_rels/slide1.xml.rels for ppt/slides/slide1.xml.
func RelsPath(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget resolves a relationship target relative to the part that owns
// the relationship.
func ResolveTarget(part, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(part), target))
}
