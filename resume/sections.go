package resume

import (
	"math"
	"strings"

	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
)

type section struct {
	name  string
	place func(layout.Cursor) (layout.Cursor, error)
}

// sections returns the section renderers in document order.
func (w *writer) sections() []section {
	return []section{
		{"header", w.header},
		{"summary", w.summary},
		{"skills", w.skills},
		{"experience", w.experience},
		{"projects", w.projects},
		{"education", w.education},
		{"certifications", w.certifications},
		{"languages", w.languages},
	}
}

func (w *writer) header(c layout.Cursor) (layout.Cursor, error) {
	p := w.data.Personal
	textWidth := w.width()
	top := c
	if w.photo != nil {
		w.flow.PutImage(c.Page, layout.ImageBox{
			Role:   "profile",
			X:      w.right() - photoSize,
			Y:      c.Y,
			Width:  photoSize,
			Height: photoSize,
			Image:  w.photo,
		})
		textWidth -= photoSize + blockSpacing
	}

	var err error
	if c, err = w.place(c, "name", p.Name, w.left(), textWidth, w.textStyle(w.st.Fonts.Name, w.st.Sizes.Name, w.st.Primary, lineGap)); err != nil {
		return c, err
	}
	if strings.TrimSpace(p.Title) != "" {
		if c, err = w.place(c, "title", p.Title, w.left(), textWidth, w.textStyle(w.st.Fonts.Body, w.st.Sizes.Title, w.st.Secondary, lineGap)); err != nil {
			return c, err
		}
	}
	if contacts := p.Contacts(); len(contacts) > 0 {
		if c, err = w.place(c, "contact", strings.Join(contacts, " | "), w.left(), textWidth, w.small(lineGap)); err != nil {
			return c, err
		}
	}
	if w.photo != nil && c.Page == top.Page {
		c.Y = math.Max(c.Y, top.Y+photoSize)
	}
	if w.st.Decorations {
		y := c.Y + blockSpacing/2
		w.flow.PutLine(c.Page, layout.Line{X1: w.left(), Y1: y, X2: w.right(), Y2: y, Color: w.st.Primary, Width: ruleWidth})
	}
	return w.flow.Advance(c, blockSpacing), nil
}

func (w *writer) summary(c layout.Cursor) (layout.Cursor, error) {
	text := strings.TrimSpace(w.data.Summary)
	if text == "" {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Summary)
	if err != nil {
		return c, err
	}
	return w.place(c, "summary", text, w.left(), w.width(), w.body(blockSpacing))
}

// skills places one row per category, label on the left and items beside it.
func (w *writer) skills(c layout.Cursor) (layout.Cursor, error) {
	var cats []cv.SkillCategory
	for _, cat := range w.data.Skills {
		if len(nonEmpty(cat.Items)) > 0 {
			cats = append(cats, cat)
		}
	}
	if len(cats) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Skills)
	if err != nil {
		return c, err
	}
	for _, cat := range cats {
		if c, err = w.labelRow(c, "skill", cat.Category, strings.Join(nonEmpty(cat.Items), ", ")); err != nil {
			return c, err
		}
	}
	return w.flow.Advance(c, blockSpacing-lineGap), nil
}

// labelRow places a label/value pair as one unit with its own overflow check.
func (w *writer) labelRow(c layout.Cursor, role, label, value string) (layout.Cursor, error) {
	lb, err := w.flow.Measure(role+"-label", label, w.left(), labelWidth-lineGap, w.bold(0))
	if err != nil {
		return c, err
	}
	vb, err := w.flow.Measure(role+"-value", value, w.left()+labelWidth, w.width()-labelWidth, w.body(0))
	if err != nil {
		return c, err
	}
	h := math.Max(lb.Height(), vb.Height())
	c = w.ensure(c, h)
	w.flow.PutText(c, lb)
	w.flow.PutText(c, vb)
	return w.flow.Advance(c, h+lineGap), nil
}

func (w *writer) experience(c layout.Cursor) (layout.Cursor, error) {
	if len(w.data.Experience) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Experience)
	if err != nil {
		return c, err
	}
	for i := range w.data.Experience {
		if c, err = w.experienceEntry(c, &w.data.Experience[i]); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (w *writer) experienceEntry(c layout.Cursor, e *cv.Experience) (layout.Cursor, error) {
	logo, err := w.logo(e.Logo)
	if err != nil {
		return c, err
	}
	textWidth := w.width()
	if logo != nil {
		textWidth -= logoSize + tagGap
	}

	title, err := w.flow.Measure("entry-title", e.Title, w.left(), textWidth, w.entryTitle(lineGap))
	if err != nil {
		return c, err
	}
	meta, err := w.measureMeta(joinNonEmpty(" | ", e.Company, e.Location), e.Period, textWidth)
	if err != nil {
		return c, err
	}
	head := title.Outer() + meta.outer()
	if logo != nil {
		head = math.Max(head, logoSize+lineGap)
	}
	c = w.ensure(c, head+w.bodyLine())
	anchor := c
	w.flow.PutText(c, title)
	w.putMeta(w.flow.Advance(c, title.Outer()), meta)
	c = w.flow.Advance(c, head)

	if c, err = w.entryBody(c, e.Description, e.Achievements, e.Technologies, maxExperienceTags); err != nil {
		return c, err
	}
	if logo != nil {
		w.flow.PutImage(anchor.Page, layout.ImageBox{
			Role:   "logo",
			Path:   strings.TrimSpace(e.Logo),
			X:      w.right() - logoSize,
			Y:      anchor.Y,
			Width:  logoSize,
			Height: logoSize,
			Image:  logo,
		})
	}
	return w.flow.Advance(c, blockSpacing), nil
}

// entryBody places the description, achievements and technology tags shared by
// experience and project entries.
func (w *writer) entryBody(c layout.Cursor, description string, achievements, techs []string, tagLimit int) (layout.Cursor, error) {
	var err error
	if d := strings.TrimSpace(description); d != "" {
		if c, err = w.place(c, "description", d, w.left(), w.width(), w.body(lineGap)); err != nil {
			return c, err
		}
	}
	if c, err = w.bullets(c, achievements); err != nil {
		return c, err
	}
	return w.tags(c, techs, tagLimit)
}

func (w *writer) projects(c layout.Cursor) (layout.Cursor, error) {
	if len(w.data.Projects) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Projects)
	if err != nil {
		return c, err
	}
	for i := range w.data.Projects {
		p := &w.data.Projects[i]
		title, err := w.flow.Measure("entry-title", p.Name, w.left(), w.width(), w.entryTitle(lineGap))
		if err != nil {
			return c, err
		}
		c = w.ensure(c, title.Outer()+w.bodyLine())
		c = w.flow.PlaceText(c, title)
		if u := strings.TrimSpace(p.URL); u != "" {
			ts := w.meta(lineGap)
			ts.Wrap = "break-word"
			if c, err = w.place(c, "url", u, w.left(), w.width(), ts); err != nil {
				return c, err
			}
		}
		if c, err = w.entryBody(c, p.Description, p.Achievements, p.Technologies, 0); err != nil {
			return c, err
		}
		c = w.flow.Advance(c, blockSpacing)
	}
	return c, nil
}

func (w *writer) education(c layout.Cursor) (layout.Cursor, error) {
	if len(w.data.Education) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Education)
	if err != nil {
		return c, err
	}
	for i := range w.data.Education {
		e := &w.data.Education[i]
		degree, err := w.flow.Measure("entry-title", e.Degree, w.left(), w.width(), w.entryTitle(lineGap))
		if err != nil {
			return c, err
		}
		meta, err := w.measureMeta(joinNonEmpty(" | ", e.Institution, e.Location), e.Period, w.width())
		if err != nil {
			return c, err
		}
		c = w.ensure(c, degree.Outer()+meta.height())
		c = w.flow.PlaceText(c, degree)
		c = w.putMeta(c, meta)
		if d := strings.TrimSpace(e.Description); d != "" {
			if c, err = w.place(c, "description", d, w.left(), w.width(), w.body(lineGap)); err != nil {
				return c, err
			}
		}
		c = w.flow.Advance(c, blockSpacing-lineGap)
	}
	return c, nil
}

// certifications places two-line rows: the name, then issuer and date.
func (w *writer) certifications(c layout.Cursor) (layout.Cursor, error) {
	if len(w.data.Certifications) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Certifications)
	if err != nil {
		return c, err
	}
	for _, cert := range w.data.Certifications {
		name, err := w.flow.Measure("cert-name", cert.Name, w.left(), w.width(), w.bold(0))
		if err != nil {
			return c, err
		}
		var meta *layout.TextBlock
		if m := joinNonEmpty(" | ", cert.Issuer, cert.Date); m != "" {
			b, err := w.flow.Measure("cert-meta", m, w.left(), w.width(), w.meta(0))
			if err != nil {
				return c, err
			}
			meta = &b
		}
		h := name.Height()
		if meta != nil {
			h += meta.Height()
		}
		c = w.ensure(c, h)
		c = w.flow.PlaceText(c, name)
		if meta != nil {
			c = w.flow.PlaceText(c, *meta)
		}
		c = w.flow.Advance(c, lineGap)
	}
	return w.flow.Advance(c, blockSpacing-lineGap), nil
}

func (w *writer) languages(c layout.Cursor) (layout.Cursor, error) {
	if len(w.data.Languages) == 0 {
		return c, nil
	}
	c, err := w.heading(c, w.st.Headings.Languages)
	if err != nil {
		return c, err
	}
	for _, l := range w.data.Languages {
		if c, err = w.labelRow(c, "language", l.Language, l.Proficiency); err != nil {
			return c, err
		}
	}
	return w.flow.Advance(c, blockSpacing-lineGap), nil
}
