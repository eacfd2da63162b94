package style

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/papyrus-cv/dsl"
	"github.com/ByLCY/papyrus-cv/layout"
)

//go:embed themes.papyrus
var themeSheet []byte

var catalog = mustCompile("themes.papyrus", themeSheet)

type compiledSheet struct {
	themes   map[Variant]Record
	headings map[Locale]Headings
}

func mustCompile(name string, data []byte) *compiledSheet {
	c, err := compile(name, data)
	if err != nil {
		panic(fmt.Sprintf("style: invalid theme sheet %s: %v", name, err))
	}
	return c
}

// compile parses a theme sheet and checks that every variant and locale is complete.
func compile(name string, data []byte) (*compiledSheet, error) {
	sheet, err := dsl.ParseBytes(name, data)
	if err != nil {
		return nil, err
	}

	decls := map[string]*dsl.ThemeDecl{}
	headingDecls := map[string]*dsl.HeadingsDecl{}
	for _, e := range sheet.Entries {
		switch {
		case e.Theme != nil:
			if _, dup := decls[e.Theme.Name]; dup {
				return nil, fmt.Errorf("%s: theme %s declared twice", e.Theme.Pos, e.Theme.Name)
			}
			decls[e.Theme.Name] = e.Theme
		case e.Headings != nil:
			if _, dup := headingDecls[e.Headings.Locale]; dup {
				return nil, fmt.Errorf("%s: headings %s declared twice", e.Headings.Pos, e.Headings.Locale)
			}
			headingDecls[e.Headings.Locale] = e.Headings
		}
	}

	props, err := resolveThemes(decls)
	if err != nil {
		return nil, err
	}

	out := &compiledSheet{
		themes:   map[Variant]Record{},
		headings: map[Locale]Headings{},
	}
	for _, v := range Variants() {
		p, ok := props[string(v)]
		if !ok {
			return nil, fmt.Errorf("theme %s is not declared", v)
		}
		rec, err := buildRecord(v, string(decls[string(v)].Label), p)
		if err != nil {
			return nil, fmt.Errorf("theme %s: %w", v, err)
		}
		out.themes[v] = rec
	}
	for _, l := range Locales() {
		decl, ok := headingDecls[string(l)]
		if !ok {
			return nil, fmt.Errorf("headings %s are not declared", l)
		}
		h, err := buildHeadings(decl.Block.Map())
		if err != nil {
			return nil, fmt.Errorf("headings %s: %w", l, err)
		}
		out.headings[l] = h
	}
	return out, nil
}

// resolveThemes flattens extends chains; a child's keys override its parent's.
func resolveThemes(decls map[string]*dsl.ThemeDecl) (map[string]map[string]*dsl.Value, error) {
	resolved := map[string]map[string]*dsl.Value{}
	visiting := map[string]bool{}

	var dfs func(name string) (map[string]*dsl.Value, error)
	dfs = func(name string) (map[string]*dsl.Value, error) {
		if p, ok := resolved[name]; ok {
			return p, nil
		}
		decl, ok := decls[name]
		if !ok {
			return nil, fmt.Errorf("theme %s 未定义", name)
		}
		if visiting[name] {
			return nil, fmt.Errorf("theme %s extends itself", name)
		}
		visiting[name] = true
		merged := map[string]*dsl.Value{}
		if decl.Extends != "" {
			parent, err := dfs(decl.Extends)
			if err != nil {
				return nil, err
			}
			for k, v := range parent {
				merged[k] = v
			}
		}
		for k, v := range decl.Block.Map() {
			merged[k] = v
		}
		visiting[name] = false
		resolved[name] = merged
		return merged, nil
	}

	for name := range decls {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

type propReader struct {
	props map[string]*dsl.Value
	err   error
}

func (r *propReader) raw(key string) string {
	v, ok := r.props[key]
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("missing %s", key)
		}
		return ""
	}
	return v.Raw()
}

func (r *propReader) color(key string) layout.Color {
	raw := r.raw(key)
	if r.err != nil {
		return layout.Color{}
	}
	c, err := parseColor(raw)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return c
}

func (r *propReader) flag(key string) bool {
	v, ok := r.props[key]
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("missing %s", key)
		}
		return false
	}
	b, err := v.Bool()
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return b
}

func (r *propReader) length(key string) layout.Length {
	raw := r.raw(key)
	if r.err != nil {
		return layout.Length{}
	}
	l, err := layout.ParseLength(raw)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return l
}

func buildRecord(v Variant, label string, props map[string]*dsl.Value) (Record, error) {
	r := &propReader{props: props}
	rec := Record{
		Variant:     v,
		Label:       label,
		Primary:     r.color("primary"),
		Secondary:   r.color("secondary"),
		Text:        r.color("text"),
		TagFill:     r.color("tag-fill"),
		UseImagery:  r.flag("imagery"),
		Decorations: r.flag("decorations"),
		Fonts: Fonts{
			Name:    r.raw("name-font"),
			Heading: r.raw("heading-font"),
			Body:    r.raw("body-font"),
			Bold:    r.raw("bold-font"),
			Italic:  r.raw("italic-font"),
			Tag:     r.raw("tag-font"),
		},
		Sizes: Sizes{
			Name:    r.length("name-size"),
			Title:   r.length("title-size"),
			Heading: r.length("heading-size"),
			Entry:   r.length("entry-size"),
			Body:    r.length("body-size"),
			Small:   r.length("small-size"),
		},
	}
	lh := r.raw("line-height")
	if r.err != nil {
		return Record{}, r.err
	}
	spec, err := layout.ParseLineHeight(lh)
	if err != nil {
		return Record{}, fmt.Errorf("line-height: %w", err)
	}
	rec.LineHeight = spec
	if label == "" {
		return Record{}, fmt.Errorf("empty label")
	}
	return rec, nil
}

func buildHeadings(props map[string]*dsl.Value) (Headings, error) {
	r := &propReader{props: props}
	h := Headings{
		Summary:        r.raw("summary"),
		Skills:         r.raw("skills"),
		Experience:     r.raw("experience"),
		Projects:       r.raw("projects"),
		Education:      r.raw("education"),
		Certifications: r.raw("certifications"),
		Languages:      r.raw("languages"),
		Achievements:   r.raw("achievements"),
		Technologies:   r.raw("technologies"),
		More:           r.raw("more"),
	}
	return h, r.err
}

// parseColor 支持 #RGB 与 #RRGGBB。
func parseColor(value string) (layout.Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 {
		return layout.Color{}, fmt.Errorf("invalid color %q", value)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return layout.Color{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return layout.Color{R: int(n >> 16 & 0xFF), G: int(n >> 8 & 0xFF), B: int(n & 0xFF)}, nil
}
