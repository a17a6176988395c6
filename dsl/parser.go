package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[:;,=]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	markupParser = participle.MustBuild[Document](
		participle.Lexer(markupLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node of a rich text markup file.
type Document struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"Newline* 'richtext' @Ident"`
	Version string         `parser:"@Ident"`
	Entries []*Entry       `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Entry is either a style definition, a color definition or a text run.
type Entry struct {
	Style *StyleDef `parser:"  @@"`
	Color *ColorDef `parser:"| @@"`
	Run   *Run      `parser:"| @@"`
}

// StyleDef declares a named, optionally inherited, set of text properties.
type StyleDef struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"'style' @Ident"`
	Extends string         `parser:"( 'extends' @Ident )?"`
	Props   []*Property    `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// ColorDef names a color (color Accent = #0F62FE).
type ColorDef struct {
	Name  string `parser:"'color' @Ident"`
	Value string `parser:"'=' @Color"`
}

// Property uses colon syntax (key: value).
type Property struct {
	Key   string `parser:"@Ident ':'"`
	Value string `parser:"@( Number | Color | Ident | String )"`
}

// Override is an inline run attribute (key=value).
type Override struct {
	Key   string `parser:"@Ident '='"`
	Value string `parser:"@( Number | Color | Ident | String )"`
}

// Run is a piece of text in a named style.
type Run struct {
	Pos       lexer.Position `parser:"" json:"-"`
	Style     string         `parser:"@Ident"`
	Overrides []*Override    `parser:"@@*"`
	Texts     []string       `parser:"( @String | '{' Newline* ( @String ( ';' | Newline )* )* '}' )"`
}

// Text returns the unquoted, concatenated text of the run.
func (r *Run) Text() (string, error) {
	var sb strings.Builder
	for _, raw := range r.Texts {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return "", fmt.Errorf("%s: 无法解析字符串 %s: %w", r.Pos, raw, err)
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// PropertyValue strips quotes from string-valued properties.
func PropertyValue(raw string) string {
	if strings.HasPrefix(raw, `"`) {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	return raw
}

// Parse parses markup from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return markupParser.Parse("", r)
}

// ParseString parses markup from a string.
func ParseString(input string) (*Document, error) {
	return markupParser.ParseString("", input)
}
