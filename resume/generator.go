// Package resume turns CV data into a paginated document: it resolves the style, places
// every section through a layout.Flow and hands the result to a renderer.
package resume

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ByLCY/papyrus-cv/assets"
	"github.com/ByLCY/papyrus-cv/binding"
	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
	"github.com/ByLCY/papyrus-cv/renderer"
	"github.com/ByLCY/papyrus-cv/style"
)

// DefaultFilename is the file name template; name, variant and locale are available.
const DefaultFilename = "${name}_CV_${variant}_${locale}.pdf"

// FilenameVars lists the placeholders a filename template may use.
var FilenameVars = []string{"name", "variant", "locale"}

// Page format shared by every variant.
const pageMargin = 20.0

// Request is the input of one generation call.
type Request struct {
	CV              cv.CV
	Variant         style.Variant
	Locale          style.Locale
	ProfileImageURL string // optional; http(s) URL or a path below the assets dir
}

// Document is a finished résumé.
type Document struct {
	Filename string
	Bytes    []byte
	Layout   *layout.Result
}

// Generator assembles résumés. It holds no per-document state and may be shared by
// concurrent callers; each call owns its own flow and cursor.
type Generator struct {
	typesetter layout.Typesetter
	renderer   renderer.Renderer
	fetcher    assets.Fetcher
	logger     zerolog.Logger
	filename   string
	geometry   layout.Geometry
}

// Option configures a Generator.
type Option func(*Generator)

// WithFetcher sets the image source for the profile photo and company logos.
// Without one no images are embedded.
func WithFetcher(f assets.Fetcher) Option {
	return func(g *Generator) { g.fetcher = f }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithFilenameTemplate overrides DefaultFilename.
func WithFilenameTemplate(tmpl string) Option {
	return func(g *Generator) {
		if strings.TrimSpace(tmpl) != "" {
			g.filename = tmpl
		}
	}
}

// NewGenerator creates a generator measuring text with ts and producing bytes with r.
func NewGenerator(ts layout.Typesetter, r renderer.Renderer, opts ...Option) *Generator {
	g := &Generator{
		typesetter: ts,
		renderer:   r,
		logger:     zerolog.Nop(),
		filename:   DefaultFilename,
		geometry:   layout.A4(pageMargin),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate lays out and renders req.
func (g *Generator) Generate(ctx context.Context, req Request) (*Document, error) {
	if g.renderer == nil {
		return nil, fmt.Errorf("resume: no renderer configured")
	}
	res, err := g.Layout(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := g.renderer.Render(res)
	if err != nil {
		return nil, fmt.Errorf("resume: render: %w", err)
	}
	name := g.Filename(req)
	g.logger.Debug().
		Str("file", name).
		Int("pages", res.PageCount()).
		Int("bytes", len(data)).
		Msg("résumé generated")
	return &Document{Filename: name, Bytes: data, Layout: res}, nil
}

// Layout runs every step of Generate except producing bytes.
func (g *Generator) Layout(ctx context.Context, req Request) (*layout.Result, error) {
	st := style.Resolve(req.Variant, req.Locale)

	// The photo is the only suspension point and is awaited before any placement.
	photo := g.profileImage(ctx, st, req.ProfileImageURL)

	flow, err := layout.NewFlow(g.geometry, g.typesetter, st.FontResources())
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	w := &writer{
		ctx:     ctx,
		flow:    flow,
		st:      st,
		data:    &req.CV,
		fetcher: g.fetcher,
		photo:   photo,
	}

	c := flow.Start()
	for _, s := range w.sections() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c, err = s.place(c); err != nil {
			return nil, fmt.Errorf("resume: %s: %w", s.name, err)
		}
		c = w.flush(c)
	}
	g.logger.Debug().
		Str("variant", string(st.Variant)).
		Str("locale", string(st.Locale)).
		Int("pages", flow.PageCount()).
		Msg("layout finished")
	return flow.Finalize(metadata(&req.CV)), nil
}

// profileImage fetches the photo for non-plain variants. Failures are logged and yield nil.
func (g *Generator) profileImage(ctx context.Context, st style.Record, ref string) image.Image {
	ref = strings.TrimSpace(ref)
	if !st.UseImagery || ref == "" || g.fetcher == nil {
		return nil
	}
	img, err := g.fetcher.Fetch(ctx, ref)
	if err != nil {
		g.logger.Warn().Err(err).Str("url", ref).Msg("profile image unavailable, continuing without it")
		return nil
	}
	return img
}

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Filename returns the download name of req, e.g. Jane_Doe_CV_Tech_EN.pdf.
func (g *Generator) Filename(req Request) string {
	st := style.Resolve(req.Variant, req.Locale)
	name := strings.Join(strings.Fields(req.CV.Personal.Name), "_")
	name = unsafeFilename.ReplaceAllString(name, "-")
	if name == "" {
		name = "Resume"
	}
	return binding.Expand(g.filename, binding.Vars{
		"name":    name,
		"variant": st.Label,
		"locale":  st.Locale.Upper(),
	})
}

func metadata(data *cv.CV) layout.DocumentMeta {
	name := strings.TrimSpace(data.Personal.Name)
	title := "CV"
	if name != "" {
		title = name + " CV"
	}
	return layout.DocumentMeta{
		Title:    title,
		Author:   name,
		Subject:  data.Personal.Title,
		Creator:  "papyrus-cv",
		Keywords: data.Keywords(),
	}
}
