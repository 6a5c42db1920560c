// Package ast defines the abstract syntax tree for CQL source, produced by
// pkg/cql/parser and lowered to ELM by pkg/cql/builder.
package ast

// Span marks a half-open byte range in the original source, used for
// locators and diagnostics.
type Span struct {
	Start int
	End   int
	Line  int
	Col   int
}

// AccessModifier is `public` (default) or `private`.
type AccessModifier int

const (
	Public AccessModifier = iota
	Private
)

// Library is the top-level parse result of a single CQL source file.
type Library struct {
	Identifier  *LibraryIdentifier
	Usings      []*UsingDef
	Includes    []*IncludeDef
	Parameters  []*ParameterDef
	CodeSystems []*CodeSystemDef
	ValueSets   []*ValueSetDef
	Codes       []*CodeDef
	Statements  []*ExpressionDef
}

// LibraryIdentifier is the `library Name version '1.0.0'` header.
type LibraryIdentifier struct {
	Name    string
	Version string
}

// UsingDef is `using FHIR version '4.0.1'`.
type UsingDef struct {
	Model   string
	Version string
}

// IncludeDef is `include Common version '1.0.0' called Common`.
type IncludeDef struct {
	Path    string
	Version string
	Alias   string
}

// ParameterDef is `parameter MeasurementPeriod Interval<DateTime> default ...`.
type ParameterDef struct {
	Name         string
	TypeSpecifier string
	Default      Expr
}

// CodeSystemDef is `codesystem "SNOMED": 'http://snomed.info/sct'`.
type CodeSystemDef struct {
	Name    string
	URL     string
	Version string
	Access  AccessModifier
}

// ValueSetDef is `valueset "Diabetes": 'http://example.org/vs/diabetes'`.
type ValueSetDef struct {
	Name        string
	URL         string
	CodeSystems []string
	Access      AccessModifier
}

// CodeDef is `code "Active": 'active' from "SNOMED"`.
type CodeDef struct {
	Name       string
	Code       string
	CodeSystem string
	Display    string
	Access     AccessModifier
}

// ExpressionDef is a top-level `define` (or `context`) statement.
type ExpressionDef struct {
	Name    string
	Context string // the context (default "Patient") in effect when defined
	Access  AccessModifier
	Body    Expr
	Span    Span
}

// Expr is implemented by every CQL expression node, which extends the
// FHIRPath expression grammar with retrieves, queries, intervals, and
// terminology literals.
type Expr interface {
	exprNode()
	Span() Span
}

type base struct{ span Span }

func (b base) Span() Span { return b.span }

// Literal wraps a scalar literal (boolean/integer/decimal/string/date/
// datetime/time/quantity), carried as raw text; the builder is responsible
// for typing it against the ELM literal model.
type Literal struct {
	base
	Kind string // "Boolean","Integer","Decimal","String","Date","DateTime","Time","Quantity","Null"
	Text string
}

// Ref is a bare identifier resolved by the builder against lets, query
// aliases, function parameters, statement defs, includes, or parameters.
type Ref struct {
	base
	Qualifier string // optional `Include.Name` qualifier, "" if unqualified
	Name      string
}

// Retrieve is `[Type]`, `[Type: "valueset name"]`, or `[Type: code in "vs"]`.
type Retrieve struct {
	base
	TypeSpecifier string
	CodePath      string // e.g. "code", "" if omitted
	ValueSet      string // referenced value set name, "" if omitted
	TerminologyRef Expr  // alternative to ValueSet: a code/concept-valued expr
}

// AliasedSource is one `Source alias` clause of a query.
type AliasedSource struct {
	Source Expr
	Alias  string
}

// SortItem is one element of a `sort by` clause.
type SortItem struct {
	Expr       Expr
	Descending bool
}

// Query is `Source alias [with ... such that ...] [where ...] [return ...]
// [sort by ...]`.
type Query struct {
	base
	Sources []AliasedSource
	Where   Expr
	Return  Expr
	Sort    []SortItem
}

// Interval is `Interval[low, high]` with optional open/closed bounds.
type Interval struct {
	base
	Low        Expr
	High       Expr
	LowClosed  bool
	HighClosed bool
}

// ListLiteral is `{1, 2, 3}` or a typed `List<Integer>{1, 2, 3}`.
type ListLiteral struct {
	base
	ElementType string
	Elements    []Expr
}

// FunctionCall is a named function invocation, either a built-in operator
// function or a library-defined function.
type FunctionCall struct {
	base
	Qualifier string
	Name      string
	Args      []Expr
}

// Invocation is `Base.Member` (property or method access).
type Invocation struct {
	base
	Base Expr
	Name string
	Args []Expr // non-nil if this is `.Method(args)`
}

// Indexer is `Base[Index]`.
type Indexer struct {
	base
	Base  Expr
	Index Expr
}

// Unary is `not expr`, `exists expr`, `-expr`, `+expr`.
type Unary struct {
	base
	Op      string
	Operand Expr
}

// Binary is any binary operator: arithmetic, comparison, equality,
// membership (`in`, `contains`, `union`, `intersect`, `except`), and
// logical (`and`, `or`, `xor`, `implies`).
type Binary struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

// CodeLiteral is `Code 'active' from "SNOMED" display 'Active'`.
type CodeLiteral struct {
	base
	Code       string
	CodeSystem string
	Display    string
}

// TypeExpr is `expr is Type`, `expr as Type`, or `cast expr as Type`.
type TypeExpr struct {
	base
	Op       string // "is", "as", "cast"
	Operand  Expr
	TypeName string
}

func (*TypeExpr) exprNode() {}

func NewTypeExpr(sp Span, op string, operand Expr, typeName string) *TypeExpr {
	return &TypeExpr{base{sp}, op, operand, typeName}
}

func (*Literal) exprNode()      {}
func (*Ref) exprNode()          {}
func (*Retrieve) exprNode()     {}
func (*Query) exprNode()        {}
func (*Interval) exprNode()     {}
func (*ListLiteral) exprNode()  {}
func (*FunctionCall) exprNode() {}
func (*Invocation) exprNode()   {}
func (*Indexer) exprNode()      {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*CodeLiteral) exprNode()  {}

func NewLiteral(sp Span, kind, text string) *Literal { return &Literal{base{sp}, kind, text} }
func NewRef(sp Span, qualifier, name string) *Ref    { return &Ref{base{sp}, qualifier, name} }
func NewRetrieve(sp Span, typeSpec string) *Retrieve  { return &Retrieve{base: base{sp}, TypeSpecifier: typeSpec} }
func NewQuery(sp Span, sources []AliasedSource) *Query {
	return &Query{base: base{sp}, Sources: sources}
}
func NewInterval(sp Span, low, high Expr, lowClosed, highClosed bool) *Interval {
	return &Interval{base{sp}, low, high, lowClosed, highClosed}
}
func NewListLiteral(sp Span, elementType string, elems []Expr) *ListLiteral {
	return &ListLiteral{base{sp}, elementType, elems}
}
func NewFunctionCall(sp Span, qualifier, name string, args []Expr) *FunctionCall {
	return &FunctionCall{base{sp}, qualifier, name, args}
}
func NewInvocation(sp Span, b Expr, name string, args []Expr) *Invocation {
	return &Invocation{base{sp}, b, name, args}
}
func NewIndexer(sp Span, b, i Expr) *Indexer { return &Indexer{base{sp}, b, i} }
func NewUnary(sp Span, op string, operand Expr) *Unary {
	return &Unary{base{sp}, op, operand}
}
func NewBinary(sp Span, op string, l, r Expr) *Binary { return &Binary{base{sp}, op, l, r} }
func NewCodeLiteral(sp Span, code, system, display string) *CodeLiteral {
	return &CodeLiteral{base{sp}, code, system, display}
}
