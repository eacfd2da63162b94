package resume

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/papyrus-cv/assets"
	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
	canvasrenderer "github.com/ByLCY/papyrus-cv/renderer/canvas"
	"github.com/ByLCY/papyrus-cv/style"
)

const contentBottom = 297.0 - pageMargin

func layoutOf(t *testing.T, g *Generator, req Request) *layout.Result {
	t.Helper()
	res, err := g.Layout(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestSingleExperiencePlainFitsOnePage(t *testing.T) {
	data := baseCV()
	data.Education = nil
	g := NewGenerator(stubTypesetter{}, nil)

	res := layoutOf(t, g, Request{CV: data, Variant: style.Plain, Locale: style.EN})
	assert.Equal(t, 1, res.PageCount())
	assert.Len(t, textsByRole(res, "bullet"), 3)
}

func TestManyEntriesTruncateTags(t *testing.T) {
	data := baseCV()
	data.Experience = nil
	for i := 0; i < 6; i++ {
		data.Experience = append(data.Experience, experienceEntry(i+1, 4, 10))
	}

	for _, v := range []style.Variant{style.Technical, style.Designed} {
		res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: v, Locale: style.EN})
		assert.Greater(t, res.PageCount(), 1, v)
		assert.Len(t, textsByRole(res, "tag"), 6*maxExperienceTags, v)
		more := textsByRole(res, "tag-more")
		require.Len(t, more, 6, v)
		for _, m := range more {
			assert.Equal(t, "+2 more", m.Content)
		}
	}

	res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: style.Plain, Locale: style.EN})
	assert.Len(t, textsByRole(res, "tag"), 6*maxExperienceTags)
	assert.Empty(t, textsByRole(res, "tag-more"))
}

func TestProjectsShowAllTags(t *testing.T) {
	data := baseCV()
	data.Experience = nil
	data.Projects = []cv.Project{{
		Name:         "papyrus",
		Description:  "Layout engine",
		Technologies: strings.Fields("A B C D E F G H I J K"),
	}}
	res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: style.Technical, Locale: style.EN})
	assert.Len(t, textsByRole(res, "tag"), 11)
	assert.Empty(t, textsByRole(res, "tag-more"))
}

func TestPlainTagsAreCommaSeparated(t *testing.T) {
	data := baseCV()
	data.Experience = []cv.Experience{experienceEntry(1, 0, 10)}
	res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: style.Plain, Locale: style.EN})

	tags := textsByRole(res, "tag")
	require.Len(t, tags, maxExperienceTags)
	for i, tag := range tags {
		want := fmt.Sprintf("Tech%02d", i+1)
		if i < len(tags)-1 {
			want += ","
		}
		assert.Equal(t, want, tag.Content)
	}
	for _, p := range res.Pages {
		assert.Empty(t, p.Rects)
	}
}

func TestLogoOnlyForLocalPaths(t *testing.T) {
	data := baseCV()
	withLogo := experienceEntry(1, 2, 3)
	withLogo.Logo = "/logos/acme.png"
	withGlyph := experienceEntry(2, 2, 3)
	withGlyph.Logo = "🏢"
	data.Experience = []cv.Experience{withLogo, withGlyph}

	fetcher := newStubFetcher("/logos/acme.png")
	g := NewGenerator(stubTypesetter{}, nil, WithFetcher(fetcher))
	res := layoutOf(t, g, Request{CV: data, Variant: style.Designed, Locale: style.EN})

	logos := imagesByRole(res, "logo")
	require.Len(t, logos, 1)
	assert.Equal(t, "/logos/acme.png", logos[0].Path)
	assert.Equal(t, []string{"/logos/acme.png"}, fetcher.Calls())

	titles := textsByRole(res, "entry-title")
	require.NotEmpty(t, titles)
	assert.Equal(t, "Engineer 1", titles[0].Content)
	assert.InDelta(t, titles[0].Y, logos[0].Y, 1e-9)
	assert.InDelta(t, 210-pageMargin-logoSize, logos[0].X, 1e-9)
	assert.LessOrEqual(t, titles[0].X+titles[0].Width, logos[0].X)
}

func TestLogoLoadFailurePropagates(t *testing.T) {
	data := baseCV()
	data.Experience[0].Logo = "/logos/missing.png"
	g := NewGenerator(stubTypesetter{}, nil, WithFetcher(newStubFetcher()))

	_, err := g.Layout(context.Background(), Request{CV: data, Variant: style.Technical, Locale: style.EN})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experience")
}

func TestUnreachableProfileImageIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	var logs bytes.Buffer
	g := NewGenerator(stubTypesetter{}, nil,
		WithFetcher(assets.NewLoader("", 500*time.Millisecond)),
		WithLogger(zerolog.New(&logs)),
	)
	res, err := g.Layout(context.Background(), Request{
		CV:              baseCV(),
		Variant:         style.Designed,
		Locale:          style.EN,
		ProfileImageURL: addr + "/me.jpg",
	})
	require.NoError(t, err)
	assert.Empty(t, imagesByRole(res, "profile"))
	assert.Contains(t, logs.String(), "profile image unavailable")
	assert.Contains(t, logs.String(), `"level":"warn"`)

	names := textsByRole(res, "name")
	require.Len(t, names, 1)
	assert.InDelta(t, 210-2*pageMargin, names[0].Width, 1e-9)
}

func TestProfileImageTopRightOnFirstPage(t *testing.T) {
	fetcher := newStubFetcher("https://img.test/me.png")
	g := NewGenerator(stubTypesetter{}, nil, WithFetcher(fetcher))
	res := layoutOf(t, g, Request{CV: baseCV(), Variant: style.Technical, Locale: style.EN, ProfileImageURL: "https://img.test/me.png"})

	require.Len(t, res.Pages[0].Images, 1)
	photo := res.Pages[0].Images[0]
	assert.Equal(t, "profile", photo.Role)
	assert.InDelta(t, 210-pageMargin-photoSize, photo.X, 1e-9)
	assert.InDelta(t, pageMargin, photo.Y, 1e-9)

	names := textsByRole(res, "name")
	require.Len(t, names, 1)
	assert.LessOrEqual(t, names[0].X+names[0].Width, photo.X)

	// content after the header starts below the photo
	headings := textsByRole(res, "heading")
	require.NotEmpty(t, headings)
	assert.GreaterOrEqual(t, headings[0].Y, photo.Y+photo.Height)
}

func TestLocaleChangesOnlyHeadings(t *testing.T) {
	data := baseCV()
	data.Experience = append(data.Experience, experienceEntry(2, 4, 10))
	data.Certifications = []cv.Certification{{Name: "CKA", Issuer: "CNCF", Date: "2021"}}
	data.Languages = []cv.Language{{Language: "Dutch", Proficiency: "Native"}}

	g := NewGenerator(stubTypesetter{}, nil)
	en := layoutOf(t, g, Request{CV: data, Variant: style.Designed, Locale: style.EN})
	nl := layoutOf(t, g, Request{CV: data, Variant: style.Designed, Locale: style.NL})

	require.Equal(t, en.PageCount(), nl.PageCount())
	enTexts, nlTexts := textsByRole(en, ""), textsByRole(nl, "")
	require.Equal(t, len(enTexts), len(nlTexts))
	differs := 0
	for i := range enTexts {
		a, b := enTexts[i], nlTexts[i]
		assert.Equal(t, a.Role, b.Role)
		assert.Equal(t, a.Page, b.Page)
		assert.InDelta(t, a.X, b.X, 1e-9)
		assert.InDelta(t, a.Y, b.Y, 1e-9)
		switch a.Role {
		case "heading", "label", "tag-more":
			if a.Content != b.Content {
				differs++
			}
		default:
			assert.Equal(t, a.Content, b.Content)
		}
	}
	assert.Positive(t, differs)
	assert.Equal(t, "Werkervaring", textsByRole(nl, "heading")[2].Content)
}

func TestLayoutIsDeterministic(t *testing.T) {
	data := baseCV()
	for i := 0; i < 4; i++ {
		data.Experience = append(data.Experience, experienceEntry(i+2, 4, 9))
	}
	g := NewGenerator(stubTypesetter{}, nil)
	for _, v := range style.Variants() {
		a := layoutOf(t, g, Request{CV: data, Variant: v, Locale: style.EN})
		b := layoutOf(t, g, Request{CV: data, Variant: v, Locale: style.EN})
		assert.Equal(t, a, b, v)
	}
}

func TestPageCountIsMonotonic(t *testing.T) {
	g := NewGenerator(stubTypesetter{}, nil)
	for _, v := range style.Variants() {
		data := baseCV()
		data.Experience = nil
		prev := 0
		for n := 0; n < 12; n++ {
			pages := layoutOf(t, g, Request{CV: data, Variant: v, Locale: style.EN}).PageCount()
			assert.GreaterOrEqual(t, pages, prev, "%s with %d entries", v, n)
			prev = pages

			data.Experience = append(data.Experience, experienceEntry(n+1, 2, 5))
			more := layoutOf(t, g, Request{CV: data, Variant: v, Locale: style.EN}).PageCount()
			data.Experience[n].Achievements = append(data.Experience[n].Achievements, "One more bullet")
			withBullet := layoutOf(t, g, Request{CV: data, Variant: v, Locale: style.EN}).PageCount()
			assert.GreaterOrEqual(t, withBullet, more, "%s bullet after %d entries", v, n)
		}
		assert.Greater(t, prev, 1)
	}
}

func TestPlainVariantIsExclusive(t *testing.T) {
	data := baseCV()
	data.Experience[0].Logo = "/logos/acme.png"
	data.Experience[0].Technologies = strings.Fields("a b c d e f g h i j")
	fetcher := newStubFetcher("/logos/acme.png", "https://img.test/me.png")
	g := NewGenerator(stubTypesetter{}, nil, WithFetcher(fetcher))

	res := layoutOf(t, g, Request{CV: data, Variant: style.Plain, Locale: style.EN, ProfileImageURL: "https://img.test/me.png"})
	assert.Empty(t, imagesByRole(res, ""))
	assert.Empty(t, fetcher.Calls())

	colors := map[layout.Color]bool{}
	for _, p := range res.Pages {
		assert.Empty(t, p.Lines)
		assert.Empty(t, p.Rects)
		for _, tb := range p.Texts {
			colors[tb.Color] = true
		}
	}
	assert.Len(t, colors, 1)
}

func TestOptionalFieldsLeaveNoGap(t *testing.T) {
	data := baseCV()
	data.Certifications = []cv.Certification{{Name: "CKA"}}
	data.Education[0].Description = "Thesis on consensus protocols."

	g := NewGenerator(stubTypesetter{}, nil)
	with := layoutOf(t, g, Request{CV: data, Variant: style.Technical, Locale: style.EN})
	data.Education[0].Description = ""
	without := layoutOf(t, g, Request{CV: data, Variant: style.Technical, Locale: style.EN})

	assert.Len(t, textsByRole(without, "description"), len(textsByRole(with, "description"))-1)

	certHeading := func(res *layout.Result) placedText {
		for _, h := range textsByRole(res, "heading") {
			if h.Content == "Certifications" {
				return h
			}
		}
		t.Fatalf("no certifications heading")
		return placedText{}
	}
	var desc placedText
	for _, d := range textsByRole(with, "description") {
		if d.Content == "Thesis on consensus protocols." {
			desc = d
		}
	}
	require.NotZero(t, desc.Height)
	shift := certHeading(with).Y - certHeading(without).Y
	assert.InDelta(t, desc.Height+lineGap, shift, 1e-9)
	assert.LessOrEqual(t, shift-desc.Height, blockSpacing)
}

func TestEmptySectionsEmitNothing(t *testing.T) {
	data := cv.CV{Personal: cv.Personal{Name: "Solo"}}
	res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: style.Designed, Locale: style.EN})
	assert.Equal(t, 1, res.PageCount())
	assert.Empty(t, textsByRole(res, "heading"))
	assert.Empty(t, textsByRole(res, "url"))
	require.Len(t, textsByRole(res, ""), 1)
}

func TestBlocksStayAboveBottomMargin(t *testing.T) {
	data := baseCV()
	for i := 0; i < 9; i++ {
		e := experienceEntry(i+2, 5, 12)
		e.Description = strings.Repeat("Long description sentence that wraps across lines. ", 6)
		data.Experience = append(data.Experience, e)
	}
	data.Certifications = []cv.Certification{{Name: "CKA", Issuer: "CNCF", Date: "2021"}, {Name: "AWS SA", Issuer: "Amazon"}}
	data.Languages = []cv.Language{{Language: "Dutch", Proficiency: "Native"}, {Language: "English", Proficiency: "C2"}}

	for _, v := range style.Variants() {
		res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: v, Locale: style.EN})
		require.Greater(t, res.PageCount(), 2)
		for i, p := range res.Pages {
			var last float64
			for _, tb := range p.Texts {
				assert.LessOrEqual(t, tb.Y+tb.Height, contentBottom+1e-9, "%s page %d %s %q", v, i, tb.Role, tb.Content)
				if tb.Y > last {
					last = tb.Y
				}
			}
			// a heading is never the last block on its page
			for _, tb := range p.Texts {
				if tb.Role == "heading" {
					assert.Less(t, tb.Y, last, "%s page %d orphaned heading %q", v, i, tb.Content)
				}
			}
		}
	}
}

func TestFilename(t *testing.T) {
	g := NewGenerator(stubTypesetter{}, nil)
	data := cv.CV{Personal: cv.Personal{Name: "  Jane   van Doe "}}
	assert.Equal(t, "Jane_van_Doe_CV_Tech_NL.pdf", g.Filename(Request{CV: data, Variant: style.Technical, Locale: style.NL}))
	assert.Equal(t, "Jane_van_Doe_CV_ATS_EN.pdf", g.Filename(Request{CV: data, Variant: style.Plain, Locale: style.EN}))
	assert.Equal(t, "Resume_CV_Design_EN.pdf", g.Filename(Request{Variant: style.Designed, Locale: style.EN}))

	data.Personal.Name = "A/B"
	custom := NewGenerator(stubTypesetter{}, nil, WithFilenameTemplate("cv-${locale}-${variant}-${name}.pdf"))
	assert.Equal(t, "cv-EN-Design-A-B.pdf", custom.Filename(Request{CV: data, Variant: style.Designed, Locale: style.EN}))
}

func TestGenerateWithoutRenderer(t *testing.T) {
	_, err := NewGenerator(stubTypesetter{}, nil).Generate(context.Background(), Request{CV: baseCV()})
	require.Error(t, err)
}

type failingRenderer struct{}

func (failingRenderer) Render(*layout.Result) ([]byte, error) {
	return nil, fmt.Errorf("disk full")
}

func TestGenerateWrapsRenderError(t *testing.T) {
	_, err := NewGenerator(stubTypesetter{}, failingRenderer{}).Generate(context.Background(), Request{CV: baseCV()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestLayoutHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(stubTypesetter{}, nil).Layout(ctx, Request{CV: baseCV()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerateProducesPDF(t *testing.T) {
	r := canvasrenderer.NewRenderer()
	data := baseCV()
	data.Experience = append(data.Experience, experienceEntry(2, 4, 10))
	data.Projects = []cv.Project{{Name: "papyrus", URL: "https://github.com/ByLCY/papyrus", Technologies: []string{"Go"}}}

	for _, v := range style.Variants() {
		doc, err := NewGenerator(r, r).Generate(context.Background(), Request{CV: data, Variant: v, Locale: style.NL})
		require.NoError(t, err, v)
		assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF")), v)
		assert.Equal(t, "Jane_Doe_CV_"+style.Resolve(v, style.NL).Label+"_NL.pdf", doc.Filename)
		assert.Equal(t, "Jane Doe CV", doc.Layout.Meta.Title)
		assert.Equal(t, []string{"Go", "Rust", "TypeScript", "Kubernetes", "Terraform", "PostgreSQL"}, doc.Layout.Meta.Keywords)
	}
}

func TestAchievementsBreakBetweenBullets(t *testing.T) {
	data := baseCV()
	data.Experience = []cv.Experience{experienceEntry(1, 60, 0)}
	res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: style.Plain, Locale: style.EN})

	bullets := textsByRole(res, "bullet")
	require.Len(t, bullets, 60)
	perPage := map[int]int{}
	for _, b := range bullets {
		perPage[b.Page]++
	}
	require.Len(t, perPage, 2)
	assert.Positive(t, perPage[0])
	assert.Positive(t, perPage[1])

	labels := textsByRole(res, "label")
	require.NotEmpty(t, labels)
	assert.Equal(t, "Key Achievements", labels[0].Content)
	assert.Equal(t, bullets[0].Page, labels[0].Page)
	assert.Less(t, labels[0].Y, bullets[0].Y)

	// the break falls exactly where the next bullet no longer fits
	split := perPage[0]
	last, next := bullets[split-1], bullets[split]
	assert.Equal(t, 1, next.Page)
	assert.InDelta(t, pageMargin, next.Y, 1e-9)
	assert.Greater(t, last.Y+last.Height+lineGap+next.Height, contentBottom)
	assert.Len(t, textsByRole(res, "bullet-mark"), 60)
}

func TestLongTagsStayInsideMargins(t *testing.T) {
	r := canvasrenderer.NewRenderer()
	data := baseCV()
	e := experienceEntry(1, 1, 2)
	e.Technologies = append(e.Technologies, strings.Repeat("Supercalifragili", 22), "Go")
	data.Experience = []cv.Experience{e}
	data.Projects = []cv.Project{{
		Name:         "papyrus",
		URL:          "https://example.com/" + strings.Repeat("very-long-path-segment/", 20),
		Technologies: []string{strings.Repeat("x", 400)},
	}}
	left, right := pageMargin, 210-pageMargin

	for _, v := range style.Variants() {
		res := layoutOf(t, NewGenerator(r, nil), Request{CV: data, Variant: v, Locale: style.EN})
		for _, role := range []string{"tag", "url"} {
			boxes := textsByRole(res, role)
			require.NotEmpty(t, boxes, "%s %s", v, role)
			for _, tb := range boxes {
				assert.GreaterOrEqual(t, tb.X, left-1e-9, "%s %s", v, role)
				for _, ln := range tb.Lines {
					assert.LessOrEqual(t, tb.X+ln.Width, right+1e-6, "%s %s %q", v, role, ln.Content)
				}
			}
		}
		for _, p := range res.Pages {
			for _, rc := range p.Rects {
				assert.LessOrEqual(t, rc.X+rc.Width, right+1e-6, v)
			}
		}
	}
}

func TestEntryPeriodIsRightAligned(t *testing.T) {
	data := baseCV()
	for _, v := range style.Variants() {
		st := style.Resolve(v, style.EN)
		res := layoutOf(t, NewGenerator(stubTypesetter{}, nil), Request{CV: data, Variant: v, Locale: style.EN})

		periods := textsByRole(res, "entry-period")
		require.Len(t, periods, 2, v)
		assert.Equal(t, "2019 - 2023", periods[0].Content)
		assert.Equal(t, "2010 - 2012", periods[1].Content)
		for _, p := range periods {
			assert.Equal(t, "right", p.Align)
			assert.InDelta(t, 210-pageMargin, p.X+p.Width, 1e-9)
			assert.Equal(t, st.Fonts.Italic, p.Font)
		}

		metas := textsByRole(res, "entry-meta")
		require.Len(t, metas, 2, v)
		assert.Equal(t, "Company 1 | Amsterdam", metas[0].Content)
		assert.Equal(t, "Utrecht University", metas[1].Content)
		for i, m := range metas {
			assert.Equal(t, periods[i].Y, m.Y)
			assert.Equal(t, st.Fonts.Italic, m.Font)
			assert.LessOrEqual(t, m.X+m.Lines[0].Width, periods[i].X+periods[i].Width-periods[i].Lines[0].Width)
		}
	}
	assert.Equal(t, "Go-BoldItalic", style.Resolve(style.Designed, style.EN).Fonts.Italic)
	assert.Equal(t, "Go-Italic", style.Resolve(style.Plain, style.EN).Fonts.Italic)
}
