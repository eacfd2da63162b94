package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// A theme sheet declares document variants and per-locale heading texts:
//
//	theme plain "ATS" {
//	  primary: #222222
//	  imagery: false
//	  body-size: 10pt
//	}
//	theme designed "Design" extends plain { primary: #1F4E79 }
//	headings en { summary: "Professional Summary" }

var (
	sheetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[:;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	sheetParser = participle.MustBuild[Sheet](
		participle.Lexer(sheetLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Sheet is the root AST node of a theme sheet.
type Sheet struct {
	Entries []*Entry `parser:"Newline* ( @@ Newline* )*"`
}

// Entry is a top-level declaration.
type Entry struct {
	Theme    *ThemeDecl    `parser:"  @@"`
	Headings *HeadingsDecl `parser:"| @@"`
}

// ThemeDecl declares a document variant and its display label.
type ThemeDecl struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'theme' @Ident"`
	Label   StringLiteral  `parser:"@String"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Block   *Block         `parser:"@@"`
}

// HeadingsDecl declares the section heading texts of one locale.
type HeadingsDecl struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Locale string         `parser:"'headings' @Ident"`
	Block  *Block         `parser:"@@"`
}

// Block is a delimited list of assignments.
type Block struct {
	Assignments []*Assignment `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"@@"`
}

// Value is a string, color, number (with optional unit) or bare identifier.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Color  *string        `parser:"| @Color"`
	Number *string        `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
}

// Raw returns the value as written (strings unquoted).
func (v *Value) Raw() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Color != nil:
		return *v.Color
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// Bool interprets identifiers true/false, yes/no, on/off.
func (v *Value) Bool() (bool, error) {
	if v == nil || v.Ident == nil {
		return false, fmt.Errorf("expected boolean, got %q", v.Raw())
	}
	switch *v.Ident {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected boolean, got %q", *v.Ident)
}

// Map flattens the block into key/value pairs; a repeated key keeps its last value.
func (b *Block) Map() map[string]*Value {
	out := map[string]*Value{}
	if b == nil {
		return out
	}
	for _, a := range b.Assignments {
		out[a.Key] = a.Value
	}
	return out
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a theme sheet from an io.Reader.
func Parse(r io.Reader) (*Sheet, error) {
	return sheetParser.Parse("", r)
}

// ParseString parses a theme sheet from a string.
func ParseString(input string) (*Sheet, error) {
	return sheetParser.ParseString("", input)
}

// ParseBytes parses a theme sheet held in memory; filename is used in error positions.
func ParseBytes(filename string, data []byte) (*Sheet, error) {
	return sheetParser.ParseBytes(filename, data)
}
