package dsl

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	flowLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|px|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:|]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	// tokenNames maps token types back to rule names; grammar helpers below
	// classify tokens by name.
	tokenNames = func() map[lexer.TokenType]string {
		names := map[lexer.TokenType]string{}
		for name, tt := range flowLexer.Symbols() {
			names[tt] = name
		}
		return names
	}()

	documentParser = participle.MustBuild[Document](
		participle.Lexer(flowLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root of a .flow file.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta, resources or container.
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Container *ContainerSection `parser:"| @@"`
}

// Kind names the section for error messages.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Container != nil:
		return "container"
	default:
		return "unknown"
	}
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// ContainerSection holds the flow content. Params are the raw header tokens,
// e.g. `width 120mm`.
type ContainerSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Params []*Lexeme      `parser:"'container' @@*"`
	Block  *Block         `parser:"@@"`
}

// Container returns the first container section, or nil.
func (d *Document) Container() *ContainerSection {
	if d == nil {
		return nil
	}
	for _, s := range d.Sections {
		if s.Container != nil {
			return s.Container
		}
	}
	return nil
}

// Block is a brace-delimited statement list.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is an assignment, a command or a bare string literal.
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a named instruction with raw arguments and an optional body.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is a property value on the right of an assignment.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ Newline* ( (';' | Newline+) Newline* @@ Newline* )* )? Newline* '}'"`
}

// Expression keeps raw tokens; the composer decides what they mean. It runs
// until a line break, brace, ';' or ',' outside of (...) and [...].
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var depth nesting
	for !depth.ends(lex.Peek()) {
		part, err := take(lex)
		if err != nil {
			return err
		}
		depth.track(part.Raw)
		e.Parts = append(e.Parts, &part)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

// nesting counts the open parentheses and brackets of an expression.
type nesting struct{ parens, brackets int }

func (n *nesting) track(raw string) {
	switch raw {
	case "(":
		n.parens++
	case ")":
		n.parens = max(n.parens-1, 0)
	case "[":
		n.brackets++
	case "]":
		n.brackets = max(n.brackets-1, 0)
	}
}

func (n nesting) ends(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	if isSymbol(tok, "]") {
		return n.brackets == 0
	}
	if n.parens > 0 || n.brackets > 0 {
		return false
	}
	return breaksStatement(tok) || isSymbol(tok, ";", ",")
}

// Lexeme is a single token captured as a command argument.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse takes one argument token. Arguments stop at a line break, a brace or ';'.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if tok := lex.Peek(); tok == nil || tok.EOF() || breaksStatement(tok) || isSymbol(tok, ";") {
		return participle.NextMatch
	}
	next, err := take(lex)
	if err != nil {
		return err
	}
	*l = next
	return nil
}

// IsIdent reports whether the lexeme is a bare identifier.
func (l *Lexeme) IsIdent() bool { return l != nil && l.Type == "Ident" }

// StringLiteral is a quoted string, unquoted on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) != 1 {
		return fmt.Errorf("dsl: string literal expects one token, got %d", len(values))
	}
	v, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("dsl: bad string %s: %w", values[0], err)
	}
	*s = StringLiteral(v)
	return nil
}

// Parse reads a document from r.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString reads a document from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// take consumes the next token as a Lexeme; String values are unquoted.
func take(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	l := Lexeme{Type: kind(tok), Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if l.Type == "String" {
		v, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: bad string %s: %w", tok.Pos, tok.Value, err)
		}
		l.Value = v
	}
	return l, nil
}

func kind(tok *lexer.Token) string {
	if name, ok := tokenNames[tok.Type]; ok {
		return name
	}
	return fmt.Sprintf("#%d", tok.Type)
}

func breaksStatement(tok *lexer.Token) bool {
	switch kind(tok) {
	case "Newline", "LBrace", "RBrace":
		return true
	}
	return false
}

func isSymbol(tok *lexer.Token, values ...string) bool {
	return kind(tok) == "Symbol" && slices.Contains(values, tok.Value)
}
