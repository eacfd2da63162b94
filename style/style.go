// Package style resolves a document variant and locale into the single style record
// consumed by every section renderer.
package style

import (
	"fmt"
	"strings"

	"github.com/ByLCY/papyrus-cv/layout"
)

// Variant selects the visual treatment of the document.
type Variant string

const (
	Plain     Variant = "plain" // ATS friendly: no color, no imagery, no decorations
	Technical Variant = "technical"
	Designed  Variant = "designed"
)

// Variants lists every supported variant.
func Variants() []Variant { return []Variant{Plain, Technical, Designed} }

// ParseVariant accepts variant names case-insensitively, plus the labels ats/tech/design.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "ats":
		return Plain, nil
	case "technical", "tech":
		return Technical, nil
	case "designed", "design":
		return Designed, nil
	}
	return "", fmt.Errorf("unknown variant %q (want plain, technical or designed)", s)
}

// Locale selects heading texts only; the CV content is expected to be localized already.
type Locale string

const (
	EN Locale = "en"
	NL Locale = "nl"
)

// Locales lists every supported locale.
func Locales() []Locale { return []Locale{EN, NL} }

// ParseLocale accepts locale codes case-insensitively.
func ParseLocale(s string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en":
		return EN, nil
	case "nl":
		return NL, nil
	}
	return "", fmt.Errorf("unknown locale %q (want en or nl)", s)
}

// Upper returns the locale code in upper case, as used in file names.
func (l Locale) Upper() string { return strings.ToUpper(string(l)) }

// Fonts names the font resources used by the renderers.
type Fonts struct {
	Name    string
	Heading string
	Body    string
	Bold    string
	Italic  string
	Tag     string
}

// Sizes holds font sizes as written in the theme sheet.
type Sizes struct {
	Name    layout.Length
	Title   layout.Length
	Heading layout.Length
	Entry   layout.Length
	Body    layout.Length
	Small   layout.Length
}

// Headings is the closed set of locale dependent texts.
type Headings struct {
	Summary        string
	Skills         string
	Experience     string
	Projects       string
	Education      string
	Certifications string
	Languages      string
	Achievements   string
	Technologies   string
	More           string // template with ${count}, e.g. "+${count} more"
}

// Record is the resolved style of one (variant, locale) pair.
type Record struct {
	Variant     Variant
	Locale      Locale
	Label       string // ATS, Tech or Design
	Primary     layout.Color
	Secondary   layout.Color
	Text        layout.Color
	TagFill     layout.Color
	UseImagery  bool
	Decorations bool
	Fonts       Fonts
	Sizes       Sizes
	LineHeight  layout.LineHeightSpec
	Headings    Headings
}

// Resolve returns the style record for variant and locale. It is total: an unknown
// variant resolves as Plain and an unknown locale as EN.
func Resolve(v Variant, l Locale) Record {
	rec, ok := catalog.themes[v]
	if !ok {
		rec = catalog.themes[Plain]
	}
	h, ok := catalog.headings[l]
	if !ok {
		l = EN
		h = catalog.headings[EN]
	}
	rec.Locale = l
	rec.Headings = h
	return rec
}

// LineHeightFor returns the line height in mm for text of the given size.
func (r Record) LineHeightFor(size layout.Length) float64 {
	return r.LineHeight.ResolveMM(size)
}

// FontResources returns the font resources referenced by the record, keyed by name.
func (r Record) FontResources() map[string]layout.FontResource {
	out := map[string]layout.FontResource{}
	for _, name := range []string{r.Fonts.Name, r.Fonts.Heading, r.Fonts.Body, r.Fonts.Bold, r.Fonts.Italic, r.Fonts.Tag} {
		if name == "" {
			continue
		}
		out[name] = layout.FontResource{
			Name:   name,
			Src:    "embed:" + name,
			Style:  fontStyle(name),
			Family: name,
		}
	}
	return out
}

func fontStyle(name string) string {
	s := strings.ToLower(name)
	switch {
	case strings.Contains(s, "bolditalic"):
		return "bold italic"
	case strings.Contains(s, "bold"):
		return "bold"
	case strings.Contains(s, "italic"):
		return "italic"
	default:
		return "regular"
	}
}
