package layout

import (
	"fmt"
	"math"
)

// BlockSpacing is the default vertical gap after a placed block, in mm.
const BlockSpacing = 3.0

// Geometry describes a fixed page format, in mm.
type Geometry struct {
	Width  float64
	Height float64
	Margin Margin
}

// A4 returns a portrait A4 page inset by margin on every side.
func A4(margin float64) Geometry {
	return Geometry{
		Width:  210,
		Height: 297,
		Margin: Margin{Top: margin, Right: margin, Bottom: margin, Left: margin},
	}
}

// ContentTop is the y offset of the first line on every page.
func (g Geometry) ContentTop() float64 { return g.Margin.Top }

// ContentBottom is the lowest y a block may reach.
func (g Geometry) ContentBottom() float64 { return g.Height - g.Margin.Bottom }

// ContentLeft is the x offset of the left margin.
func (g Geometry) ContentLeft() float64 { return g.Margin.Left }

// ContentRight is the x offset of the right margin.
func (g Geometry) ContentRight() float64 { return g.Width - g.Margin.Right }

// ContentWidth is the usable width between the margins.
func (g Geometry) ContentWidth() float64 { return g.Width - g.Margin.Left - g.Margin.Right }

// Cursor is where the next block goes: a page index and a y offset on that page.
// It is a value; every placement returns the advanced cursor.
type Cursor struct {
	Page int     `json:"page"`
	Y    float64 `json:"y"`
}

// TextStyle carries the font and metrics used to measure and draw a text run.
type TextStyle struct {
	Font       string  // key into the flow's font resources
	FontSize   float64 // mm
	LineHeight float64 // mm
	Color      Color
	Align      string
	Wrap       string
	After      float64 // gap added below the block when it is placed
}

// TextBlock is a measured text run, ready to place.
type TextBlock struct {
	Role    string
	Content string
	X       float64
	Width   float64
	Style   TextStyle
	Lines   []TextLine
}

// Height is the vertical extent of the block, excluding the gap after it.
func (b TextBlock) Height() float64 {
	return float64(len(b.Lines)) * b.Style.LineHeight
}

// Outer is the space the block takes from the cursor, including the gap after it.
func (b TextBlock) Outer() float64 {
	return b.Height() + b.Style.After
}

// LineWidth returns the widest measured line.
func (b TextBlock) LineWidth() float64 {
	w := 0.0
	for _, ln := range b.Lines {
		w = math.Max(w, ln.Width)
	}
	return w
}

type pageAccumulator struct {
	texts  []TextBox
	images []ImageBox
	lines  []Line
	rects  []Rect
}

// Flow is the page flow controller of one document. It owns the pages produced so far
// and decides page breaks; it is not safe for concurrent use and must not be shared
// between documents.
type Flow struct {
	geom       Geometry
	typesetter Typesetter
	fonts      map[string]FontResource
	pages      []*pageAccumulator
	finalized  bool
}

// NewFlow starts a document with a single empty page.
func NewFlow(geom Geometry, ts Typesetter, fonts map[string]FontResource) (*Flow, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if geom.ContentBottom() <= geom.ContentTop() || geom.ContentWidth() <= 0 {
		return nil, fmt.Errorf("layout: page geometry leaves no content area")
	}
	f := &Flow{
		geom:       geom,
		typesetter: ts,
		fonts:      fonts,
	}
	f.pages = append(f.pages, &pageAccumulator{})
	return f, nil
}

// Geometry returns the page format.
func (f *Flow) Geometry() Geometry { return f.geom }

// Start returns the initial cursor: page 0 at the top margin.
func (f *Flow) Start() Cursor {
	return Cursor{Page: 0, Y: f.geom.ContentTop()}
}

// PageCount returns the number of pages emitted so far.
func (f *Flow) PageCount() int { return len(f.pages) }

// Fits reports whether a block of height h can be placed at c without a page break.
func (f *Flow) Fits(c Cursor, h float64) bool {
	return c.Y+h <= f.geom.ContentBottom()
}

// EnsureSpace emits a page break when a block of height h would cross the bottom margin.
// A block taller than a whole page is left at the top of a fresh page instead of
// breaking again.
func (f *Flow) EnsureSpace(c Cursor, h float64) Cursor {
	if f.Fits(c, h) || c.Y <= f.geom.ContentTop() {
		return c
	}
	return f.pageBreak(c)
}

func (f *Flow) pageBreak(c Cursor) Cursor {
	next := Cursor{Page: c.Page + 1, Y: f.geom.ContentTop()}
	for len(f.pages) <= next.Page {
		f.pages = append(f.pages, &pageAccumulator{})
	}
	return next
}

// Advance moves the cursor down by dy on the same page.
func (f *Flow) Advance(c Cursor, dy float64) Cursor {
	return Cursor{Page: c.Page, Y: c.Y + dy}
}

// Measure wraps content to width with the given style.
func (f *Flow) Measure(role, content string, x, width float64, style TextStyle) (TextBlock, error) {
	font, ok := f.fonts[style.Font]
	if !ok {
		return TextBlock{}, fmt.Errorf("layout: 未定义的字体 %q", style.Font)
	}
	wrap := style.Wrap
	if wrap == "" {
		wrap = "anywhere"
	}
	lines, err := f.typesetter.LayoutLines(content, width, font, style.FontSize, style.LineHeight, wrap)
	if err != nil {
		return TextBlock{}, fmt.Errorf("layout: 排版 %s 失败: %w", role, err)
	}
	// Block height is derived from the line count alone so that measuring and placing agree.
	for i := range lines {
		lines[i].Height = style.LineHeight
		lines[i].GapBefore = 0
	}
	return TextBlock{
		Role:    role,
		Content: content,
		X:       x,
		Width:   width,
		Style:   style,
		Lines:   lines,
	}, nil
}

// PutText draws b with its top at c without moving the cursor.
func (f *Flow) PutText(c Cursor, b TextBlock) {
	acc := f.page(c.Page)
	acc.texts = append(acc.texts, TextBox{
		Role:       b.Role,
		Content:    b.Content,
		X:          b.X,
		Y:          c.Y,
		Width:      b.Width,
		LineHeight: b.Style.LineHeight,
		Font:       b.Style.Font,
		FontSize:   b.Style.FontSize,
		Color:      b.Style.Color,
		Lines:      b.Lines,
		Height:     b.Height(),
		Align:      b.Style.Align,
	})
}

// PlaceText draws b at c and returns the cursor below it (height plus the style's gap).
// The caller is expected to have called EnsureSpace for the block.
func (f *Flow) PlaceText(c Cursor, b TextBlock) Cursor {
	f.PutText(c, b)
	return f.Advance(c, b.Outer())
}

// PlaceImage draws img at c.Y and returns the cursor below it.
func (f *Flow) PlaceImage(c Cursor, img ImageBox) Cursor {
	img.Y = c.Y
	f.PutImage(c.Page, img)
	return f.Advance(c, img.Height+BlockSpacing)
}

// PutImage adds an image at its own absolute position on page.
func (f *Flow) PutImage(page int, img ImageBox) {
	acc := f.page(page)
	acc.images = append(acc.images, img)
}

// PutRect adds a rectangle at its own absolute position on page.
func (f *Flow) PutRect(page int, r Rect) {
	acc := f.page(page)
	acc.rects = append(acc.rects, r)
}

// PutLine adds a line segment at its own absolute position on page.
func (f *Flow) PutLine(page int, l Line) {
	acc := f.page(page)
	acc.lines = append(acc.lines, l)
}

func (f *Flow) page(i int) *pageAccumulator {
	if f.finalized {
		panic("layout: placement after Finalize")
	}
	if i < 0 || i >= len(f.pages) {
		panic(fmt.Sprintf("layout: page %d out of range (%d pages)", i, len(f.pages)))
	}
	return f.pages[i]
}

// Finalize freezes the flow and returns the laid out document.
func (f *Flow) Finalize(meta DocumentMeta) *Result {
	f.finalized = true
	out := make([]Page, len(f.pages))
	for i, acc := range f.pages {
		out[i] = Page{
			Width:  f.geom.Width,
			Height: f.geom.Height,
			Margin: f.geom.Margin,
			Texts:  acc.texts,
			Images: acc.images,
			Lines:  acc.lines,
			Rects:  acc.rects,
		}
	}
	fonts := make(map[string]FontResource, len(f.fonts))
	for k, v := range f.fonts {
		fonts[k] = v
	}
	return &Result{
		Pages:     out,
		Resources: ResourceSet{Fonts: fonts},
		Meta:      meta,
	}
}
