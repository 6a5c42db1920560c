package lexer

// Kind classifies a lexed token.
type Kind int

const (
	EOF Kind = iota
	Ident
	DelimitedIdent
	QuotedIdent // "double quoted" names: code systems, value sets, includes
	Number
	String
	Date
	DateTime
	Time
	Op
	Keyword
)

// Token is one lexical unit of CQL source.
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int
	Line  int
	Col   int
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// keywords are reserved words that the lexer tags distinctly from plain
// identifiers so the parser can dispatch on them directly.
var keywords = map[string]bool{
	"library": true, "using": true, "include": true, "called": true,
	"parameter": true, "default": true, "context": true, "define": true,
	"public": true, "private": true, "codesystem": true, "valueset": true,
	"code": true, "Code": true, "Concept": true, "concept": true, "from": true, "display": true,
	"version": true, "where": true, "return": true, "with": true,
	"without": true, "such": true, "that": true, "sort": true, "by": true,
	"asc": true, "ascending": true, "desc": true, "descending": true,
	"and": true, "or": true, "xor": true, "implies": true, "not": true,
	"in": true, "contains": true, "union": true, "intersect": true,
	"except": true, "is": true, "as": true, "cast": true, "exists": true,
	"true": true, "false": true, "null": true, "Interval": true,
	"List": true, "let": true, "function": true, "fluent": true,
	"external": true, "div": true, "mod": true, "all": true,
	"distinct": true, "properly": true, "between": true, "meets": true,
	"before": true, "after": true, "during": true, "includes": true,
	"starts": true, "ends": true, "occurs": true, "within": true,
	"same": true, "if": true, "then": true, "else": true, "case": true,
	"when": true, "end": true, "of": true, "aggregate": true,
	"starting": true,
}

// IsKeyword reports whether word is a reserved CQL word.
func IsKeyword(word string) bool { return keywords[word] }
