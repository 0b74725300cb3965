package pptx

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyOne(t *testing.T, s pptxtest.Slide) models.SlideRecord {
	t.Helper()
	c, err := Open(pptxtest.Build(pptxtest.Deck{Slides: []pptxtest.Slide{s}}))
	require.NoError(t, err)
	rec, err := ClassifySlide(c, "ppt/slides/slide1.xml", 1)
	require.NoError(t, err)
	return rec
}

func TestClassificationRules(t *testing.T) {
	tests := []struct {
		name  string
		slide pptxtest.Slide
		want  models.ContentType
	}{
		{"chart frame", pptxtest.Slide{Title: "Revenue", Chart: true}, models.ContentChart},
		{"table", pptxtest.Slide{Title: "Numbers", Table: true}, models.ContentTable},
		{"table with chart alt text", pptxtest.Slide{Table: true, TableAlt: "Quarterly chart data"}, models.ContentTable},
		{"title and subtitle", pptxtest.Slide{Title: "Welcome", Subtitle: "2024"}, models.ContentTitle},
		{"title only", pptxtest.Slide{Title: "Part Two"}, models.ContentTitle},
		{"two bodies", pptxtest.Slide{Title: "Compare", Bodies: []string{"Left", "Right"}}, models.ContentTwoColumn},
		{"picture only", pptxtest.Slide{Pictures: 1}, models.ContentImage},
		{"empty", pptxtest.Slide{}, models.ContentBlank},
		{"title and body", pptxtest.Slide{Title: "Agenda", Bodies: []string{"Items"}}, models.ContentContent},
		{"title body picture", pptxtest.Slide{Title: "Market", Bodies: []string{"Growth"}, Pictures: 1}, models.ContentContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyOne(t, tt.slide).ContentType)
		})
	}
}

func TestClassifySectionHeader(t *testing.T) {
	assert.Equal(t, models.ContentSectionHeader, classify(shapeStats{shapes: 2, hasTitle: true, pictures: 1}))
	assert.Equal(t, models.ContentContent, classify(shapeStats{shapes: 3, hasTitle: true, pictures: 1}))
}

func TestTitleText(t *testing.T) {
	rec := classifyOne(t, pptxtest.Slide{Title: "  Quarterly   Review ", Bodies: []string{"Body"}})
	require.NotNil(t, rec.Title)
	assert.Equal(t, "Quarterly   Review", *rec.Title)

	rec = classifyOne(t, pptxtest.Slide{Bodies: []string{"Body"}})
	assert.Nil(t, rec.Title)
}

func TestTitleFallsBackToIndexZero(t *testing.T) {
	raw := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:sp><p:nvSpPr><p:nvPr><p:ph idx="0"/></p:nvPr></p:nvSpPr>` +
		`<p:txBody><a:p><a:r><a:t>Heading</a:t></a:r><a:r><a:t>Text</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	rec := classifyOne(t, pptxtest.Slide{Raw: raw})
	require.NotNil(t, rec.Title)
	assert.Equal(t, "Heading Text", *rec.Title)
}

func TestNotesPreview(t *testing.T) {
	long := strings.Repeat("word ", 100)
	rec := classifyOne(t, pptxtest.Slide{Title: "T", Notes: pptxtest.Text(long)})
	assert.True(t, rec.HasNotes)
	require.NotNil(t, rec.NotesPreview)
	assert.LessOrEqual(t, utf8.RuneCountInString(*rec.NotesPreview), NotesPreviewLimit+3)
	assert.True(t, strings.HasSuffix(*rec.NotesPreview, "..."))

	rec = classifyOne(t, pptxtest.Slide{Title: "T", Notes: pptxtest.Text("Short note")})
	require.NotNil(t, rec.NotesPreview)
	assert.Equal(t, "Short note", *rec.NotesPreview)

	rec = classifyOne(t, pptxtest.Slide{Title: "T"})
	assert.False(t, rec.HasNotes)
	assert.Nil(t, rec.NotesPreview)

	rec = classifyOne(t, pptxtest.Slide{Title: "T", Notes: pptxtest.Text("")})
	assert.True(t, rec.HasNotes)
	assert.Nil(t, rec.NotesPreview)
}

func TestTruncateNotes(t *testing.T) {
	exact := strings.Repeat("é", NotesPreviewLimit)
	assert.Equal(t, exact, TruncateNotes(exact))

	over := strings.Repeat("é", NotesPreviewLimit+1)
	out := TruncateNotes(over)
	assert.Equal(t, NotesPreviewLimit+3, utf8.RuneCountInString(out))
}

func TestClassifySlideParseFailure(t *testing.T) {
	c, err := Open(pptxtest.Build(pptxtest.Deck{Slides: []pptxtest.Slide{{Raw: "<p:sld><p:cSld>"}}}))
	require.NoError(t, err)

	rec, err := ClassifySlide(c, "ppt/slides/slide1.xml", 1)
	assert.Error(t, err)
	assert.Equal(t, models.DefaultSlideRecord(1), rec)
}

func TestClassifySlidesFiveSlideDeck(t *testing.T) {
	c, err := Open(pptxtest.Build(pptxtest.FiveSlideDeck()))
	require.NoError(t, err)

	records := ClassifySlides(context.Background(), c, 0, nil)
	require.Len(t, records, 5)

	var types []models.ContentType
	for i, r := range records {
		assert.Equal(t, i+1, r.SlideNumber)
		types = append(types, r.ContentType)
	}
	assert.Equal(t, []models.ContentType{
		models.ContentContent,
		models.ContentContent,
		models.ContentChart,
		models.ContentBlank,
		models.ContentContent,
	}, types)

	assert.True(t, records[0].HasNotes)
	assert.Equal(t, "Welcome everyone", *records[0].NotesPreview)
	assert.Nil(t, records[3].Title)
	assert.Equal(t, "Revenue", *records[2].Title)
}

func TestClassifySlidesIsolatesFailures(t *testing.T) {
	slides := []pptxtest.Slide{{Title: "One", Bodies: []string{"a"}}, {Raw: "garbage<"}, {}}
	c, err := Open(pptxtest.Build(pptxtest.Deck{Slides: slides}))
	require.NoError(t, err)

	records := ClassifySlides(context.Background(), c, 0, nil)
	require.Len(t, records, 3)
	assert.Equal(t, models.ContentContent, records[0].ContentType)
	assert.Equal(t, models.DefaultSlideRecord(2), records[1])
	assert.Equal(t, models.ContentBlank, records[2].ContentType)
	for i, r := range records {
		assert.Equal(t, i+1, r.SlideNumber, fmt.Sprintf("slide %d", i+1))
	}
}

func TestClassifySlidesConcurrencyLimit(t *testing.T) {
	c, err := Open(pptxtest.Build(pptxtest.FiveSlideDeck()))
	require.NoError(t, err)

	serial := ClassifySlides(context.Background(), c, 1, nil)
	parallel := ClassifySlides(context.Background(), c, 16, nil)
	assert.Equal(t, serial, parallel)
}

func TestClassifySlidesCancelled(t *testing.T) {
	c, err := Open(pptxtest.Build(pptxtest.FiveSlideDeck()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := ClassifySlides(ctx, c, 2, nil)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, models.DefaultSlideRecord(i+1), r)
	}
}
