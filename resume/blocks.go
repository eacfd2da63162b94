package resume

import (
	"context"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/papyrus-cv/assets"
	"github.com/ByLCY/papyrus-cv/binding"
	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
	"github.com/ByLCY/papyrus-cv/style"
)

// Spacing and sizes in mm.
const (
	blockSpacing = layout.BlockSpacing
	lineGap      = 1.0
	headingGap   = 2.0
	bulletIndent = 4.0
	labelWidth   = 42.0
	tagPadX      = 1.5
	tagPadY      = 0.6
	tagGap       = 1.5
	photoSize    = 32.0
	logoSize     = 10.0
	ruleWidth    = 0.4

	// Experience entries show at most this many technology tags.
	maxExperienceTags = 8
)

const bulletMark = "•"

// writer places the sections of one document. It lives for a single Layout call.
type writer struct {
	ctx     context.Context
	flow    *layout.Flow
	st      style.Record
	data    *cv.CV
	fetcher assets.Fetcher
	photo   image.Image
	pending []pendingBlock
}

type pendingBlock struct {
	block layout.TextBlock
	rule  bool
}

func (w *writer) left() float64  { return w.flow.Geometry().ContentLeft() }
func (w *writer) right() float64 { return w.flow.Geometry().ContentRight() }
func (w *writer) width() float64 { return w.flow.Geometry().ContentWidth() }

func (w *writer) textStyle(font string, size layout.Length, col layout.Color, after float64) layout.TextStyle {
	return layout.TextStyle{
		Font:       font,
		FontSize:   size.ToMM(),
		LineHeight: w.st.LineHeightFor(size),
		Color:      col,
		After:      after,
	}
}

func (w *writer) body(after float64) layout.TextStyle {
	return w.textStyle(w.st.Fonts.Body, w.st.Sizes.Body, w.st.Text, after)
}

func (w *writer) bold(after float64) layout.TextStyle {
	return w.textStyle(w.st.Fonts.Bold, w.st.Sizes.Body, w.st.Text, after)
}

func (w *writer) small(after float64) layout.TextStyle {
	return w.textStyle(w.st.Fonts.Body, w.st.Sizes.Small, w.st.Secondary, after)
}

// meta is the italic secondary line of an entry: company, place and dates.
func (w *writer) meta(after float64) layout.TextStyle {
	return w.textStyle(w.st.Fonts.Italic, w.st.Sizes.Small, w.st.Secondary, after)
}

func (w *writer) entryTitle(after float64) layout.TextStyle {
	return w.textStyle(w.st.Fonts.Bold, w.st.Sizes.Entry, w.st.Text, after)
}

// bodyLine is the height of one body line.
func (w *writer) bodyLine() float64 {
	return w.st.LineHeightFor(w.st.Sizes.Body)
}

// place measures and places one coarse block with a single overflow check.
func (w *writer) place(c layout.Cursor, role, content string, x, width float64, ts layout.TextStyle) (layout.Cursor, error) {
	b, err := w.flow.Measure(role, content, x, width, ts)
	if err != nil {
		return c, err
	}
	c = w.ensure(c, b.Height())
	return w.flow.PlaceText(c, b), nil
}

// ensure makes room for a block of height h at c. Pending headings and labels are
// placed first, on the same page as the block.
func (w *writer) ensure(c layout.Cursor, h float64) layout.Cursor {
	if len(w.pending) == 0 {
		return w.flow.EnsureSpace(c, h)
	}
	total := h
	for _, p := range w.pending {
		total += p.block.Outer()
	}
	c = w.flow.EnsureSpace(c, total)
	for _, p := range w.pending {
		w.flow.PutText(c, p.block)
		if p.rule {
			y := c.Y + p.block.Height() + p.block.Style.After/2
			w.flow.PutLine(c.Page, layout.Line{X1: w.left(), Y1: y, X2: w.right(), Y2: y, Color: w.st.Primary, Width: ruleWidth})
		}
		c = w.flow.Advance(c, p.block.Outer())
	}
	w.pending = w.pending[:0]
	return c
}

// flush places whatever is still pending.
func (w *writer) flush(c layout.Cursor) layout.Cursor {
	if len(w.pending) == 0 {
		return c
	}
	return w.ensure(c, 0)
}

// heading queues a section heading; it is placed with the first block that follows.
func (w *writer) heading(c layout.Cursor, text string) (layout.Cursor, error) {
	ts := w.textStyle(w.st.Fonts.Heading, w.st.Sizes.Heading, w.st.Primary, headingGap)
	b, err := w.flow.Measure("heading", text, w.left(), w.width(), ts)
	if err != nil {
		return c, err
	}
	w.pending = append(w.pending, pendingBlock{block: b, rule: w.st.Decorations})
	return c, nil
}

// label queues a small bold caption, kept with the first following line.
func (w *writer) label(c layout.Cursor, text string) (layout.Cursor, error) {
	b, err := w.flow.Measure("label", text, w.left(), w.width(), w.textStyle(w.st.Fonts.Bold, w.st.Sizes.Small, w.st.Secondary, lineGap))
	if err != nil {
		return c, err
	}
	w.pending = append(w.pending, pendingBlock{block: b})
	return c, nil
}

// bullets places achievement items one by one, checking for overflow before each.
func (w *writer) bullets(c layout.Cursor, items []string) (layout.Cursor, error) {
	items = nonEmpty(items)
	if len(items) == 0 {
		return c, nil
	}
	c, err := w.label(c, w.st.Headings.Achievements)
	if err != nil {
		return c, err
	}
	x := w.left() + bulletIndent
	for _, item := range items {
		b, err := w.flow.Measure("bullet", item, x, w.width()-bulletIndent, w.body(lineGap))
		if err != nil {
			return c, err
		}
		mark, err := w.flow.Measure("bullet-mark", bulletMark, w.left(), bulletIndent, w.body(0))
		if err != nil {
			return c, err
		}
		c = w.ensure(c, b.Height())
		w.flow.PutText(c, mark)
		c = w.flow.PlaceText(c, b)
	}
	return c, nil
}

type tagItem struct {
	block  layout.TextBlock
	width  float64
	height float64
}

// tags places a technology list as rows of tags. When limit > 0 the list is cut to limit
// entries; non-plain variants then end with a "+N more" tag.
func (w *writer) tags(c layout.Cursor, techs []string, limit int) (layout.Cursor, error) {
	techs = nonEmpty(techs)
	if len(techs) == 0 {
		return c, nil
	}
	shown, more := techs, 0
	if limit > 0 && len(techs) > limit {
		shown, more = techs[:limit], len(techs)-limit
	}
	pills := w.st.Decorations

	texts := make([]string, 0, len(shown)+1)
	roles := make([]string, 0, len(shown)+1)
	for i, t := range shown {
		if !pills && i < len(shown)-1 {
			t += ","
		}
		texts = append(texts, t)
		roles = append(roles, "tag")
	}
	if more > 0 && pills {
		texts = append(texts, binding.Expand(w.st.Headings.More, binding.Vars{"count": strconv.Itoa(more)}))
		roles = append(roles, "tag-more")
	}

	c, err := w.label(c, w.st.Headings.Technologies)
	if err != nil {
		return c, err
	}

	ts := w.textStyle(w.st.Fonts.Tag, w.st.Sizes.Small, w.st.Text, 0)
	ts.Wrap = "nowrap"
	padX, padY := 0.0, 0.0
	if pills {
		padX, padY = tagPadX, tagPadY
	}
	var rows [][]tagItem
	var row []tagItem
	x := w.left()
	for i, text := range texts {
		b, err := w.flow.Measure(roles[i], text, 0, w.width(), ts)
		if err != nil {
			return c, err
		}
		if b.LineWidth() > w.width()-2*padX {
			// 超长的单个标签按宽度折行，独占一行
			long := ts
			long.Wrap = "break-word"
			if b, err = w.flow.Measure(roles[i], text, 0, w.width()-2*padX, long); err != nil {
				return c, err
			}
		}
		item := tagItem{block: b, width: math.Min(b.LineWidth()+2*padX, w.width()), height: b.Height() + 2*padY}
		if len(row) > 0 && x+item.width > w.right() {
			rows = append(rows, row)
			row, x = nil, w.left()
		}
		row = append(row, item)
		x += item.width + tagGap
	}
	rows = append(rows, row)

	for _, r := range rows {
		h := 0.0
		for _, it := range r {
			h = math.Max(h, it.height)
		}
		c = w.ensure(c, h)
		x := w.left()
		for _, it := range r {
			if pills {
				fill := w.st.TagFill
				w.flow.PutRect(c.Page, layout.Rect{X: x, Y: c.Y, Width: it.width, Height: it.height, Radius: it.height / 2, FillColor: &fill})
			}
			b := it.block
			b.X = x + padX
			b.Width = it.width - 2*padX
			w.flow.PutText(w.flow.Advance(c, padY), b)
			x += it.width + tagGap
		}
		c = w.flow.Advance(c, h+lineGap)
	}
	return c, nil
}

// metaRow is the line under an entry title: details on the left, the period
// right-aligned on the same line.
type metaRow struct {
	details *layout.TextBlock
	period  *layout.TextBlock
}

func (m metaRow) height() float64 {
	h := 0.0
	if m.details != nil {
		h = m.details.Height()
	}
	if m.period != nil {
		h = math.Max(h, m.period.Height())
	}
	return h
}

// outer includes the gap below the row; an empty row takes no space.
func (m metaRow) outer() float64 {
	if m.details == nil && m.period == nil {
		return 0
	}
	return m.height() + lineGap
}

func (w *writer) measureMeta(details, period string, width float64) (metaRow, error) {
	var row metaRow
	detailWidth := width
	if p := strings.TrimSpace(period); p != "" {
		ts := w.meta(0)
		ts.Align = "right"
		b, err := w.flow.Measure("entry-period", p, w.left(), width/2, ts)
		if err != nil {
			return row, err
		}
		b.X = w.left() + width/2
		row.period = &b
		detailWidth = width - b.LineWidth() - tagGap
	}
	if d := strings.TrimSpace(details); d != "" {
		b, err := w.flow.Measure("entry-meta", d, w.left(), detailWidth, w.meta(0))
		if err != nil {
			return row, err
		}
		row.details = &b
	}
	return row, nil
}

func (w *writer) putMeta(c layout.Cursor, row metaRow) layout.Cursor {
	if row.details != nil {
		w.flow.PutText(c, *row.details)
	}
	if row.period != nil {
		w.flow.PutText(c, *row.period)
	}
	return w.flow.Advance(c, row.outer())
}

// logo returns the decoded company logo, or nil when the entry gets no image block.
func (w *writer) logo(ref string) (image.Image, error) {
	if !w.st.UseImagery || w.fetcher == nil || strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	if err := assets.CheckLocal(ref); err != nil {
		return nil, nil
	}
	return w.fetcher.Fetch(w.ctx, strings.TrimSpace(ref))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	return strings.Join(nonEmpty(parts), sep)
}
