// Package ast defines the abstract syntax tree produced by the FHIRPath
// parser and consumed by the evaluator.
package ast

// Span marks a half-open byte range in the original source text, used for
// diagnostics.
type Span struct {
	Start int
	End   int
	Line  int
	Col   int
}

// Expr is implemented by every FHIRPath expression node.
type Expr interface {
	exprNode()
	Span() Span
}

type base struct {
	span Span
}

func (b base) Span() Span { return b.span }

// NullLiteral is the empty collection literal `{}`.
type NullLiteral struct {
	base
}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	base
	Value bool
}

// StringLiteral is a single-quoted string literal; Value has already been
// unescaped.
type StringLiteral struct {
	base
	Value string
}

// NumberLiteral is an integer or decimal literal, kept as raw text so the
// evaluator decides Integer vs Decimal representation.
type NumberLiteral struct {
	base
	Text string
}

// DateLiteral is an `@YYYY[-MM[-DD]]` literal, text excludes the `@`.
type DateLiteral struct {
	base
	Text string
}

// DateTimeLiteral is an `@YYYY-MM-DDThh:mm:ss[.fff][Z|+hh:mm]` literal.
type DateTimeLiteral struct {
	base
	Text string
}

// TimeLiteral is an `@Thh:mm:ss` literal.
type TimeLiteral struct {
	base
	Text string
}

// QuantityLiteral is a number followed by a UCUM unit or calendar keyword.
type QuantityLiteral struct {
	base
	Text string
}

// Identifier is a bare member-access term, e.g. `name` or `Patient`.
type Identifier struct {
	base
	Name string
}

// ExternalConstant is `%name` or `%'quoted name'`.
type ExternalConstant struct {
	base
	Name string
}

// ThisInvocation is `$this`.
type ThisInvocation struct{ base }

// IndexInvocation is `$index`.
type IndexInvocation struct{ base }

// TotalInvocation is `$total`.
type TotalInvocation struct{ base }

// FunctionCall is a named function or method invocation with unevaluated
// argument expressions; the evaluator decides eager vs. lazy evaluation per
// function.
type FunctionCall struct {
	base
	Name string
	Args []Expr
}

// Invocation is `Base.Member` where Member is an Identifier, FunctionCall,
// ThisInvocation, IndexInvocation, or TotalInvocation.
type Invocation struct {
	base
	Base   Expr
	Member Expr
}

// Indexer is `Base[Index]`.
type Indexer struct {
	base
	Base  Expr
	Index Expr
}

// Polarity is unary `+expr` or `-expr`.
type Polarity struct {
	base
	Op      string
	Operand Expr
}

// Binary is any binary operator expression: `* / div mod + - & | < <= > >=
// = != ~ !~ in contains and or xor implies`.
type Binary struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

// TypeExpr is `expr is TypeName` or `expr as TypeName`.
type TypeExpr struct {
	base
	Op       string
	Operand  Expr
	TypeName string
}

func (*NullLiteral) exprNode()      {}
func (*BooleanLiteral) exprNode()   {}
func (*StringLiteral) exprNode()    {}
func (*NumberLiteral) exprNode()    {}
func (*DateLiteral) exprNode()      {}
func (*DateTimeLiteral) exprNode()  {}
func (*TimeLiteral) exprNode()      {}
func (*QuantityLiteral) exprNode()  {}
func (*Identifier) exprNode()       {}
func (*ExternalConstant) exprNode() {}
func (*ThisInvocation) exprNode()   {}
func (*IndexInvocation) exprNode()  {}
func (*TotalInvocation) exprNode()  {}
func (*FunctionCall) exprNode()     {}
func (*Invocation) exprNode()       {}
func (*Indexer) exprNode()          {}
func (*Polarity) exprNode()         {}
func (*Binary) exprNode()           {}
func (*TypeExpr) exprNode()         {}

func NewNullLiteral(sp Span) *NullLiteral       { return &NullLiteral{base{sp}} }
func NewBooleanLiteral(sp Span, v bool) *BooleanLiteral {
	return &BooleanLiteral{base{sp}, v}
}
func NewStringLiteral(sp Span, v string) *StringLiteral { return &StringLiteral{base{sp}, v} }
func NewNumberLiteral(sp Span, text string) *NumberLiteral {
	return &NumberLiteral{base{sp}, text}
}
func NewDateLiteral(sp Span, text string) *DateLiteral         { return &DateLiteral{base{sp}, text} }
func NewDateTimeLiteral(sp Span, text string) *DateTimeLiteral { return &DateTimeLiteral{base{sp}, text} }
func NewTimeLiteral(sp Span, text string) *TimeLiteral         { return &TimeLiteral{base{sp}, text} }
func NewQuantityLiteral(sp Span, text string) *QuantityLiteral {
	return &QuantityLiteral{base{sp}, text}
}
func NewIdentifier(sp Span, name string) *Identifier { return &Identifier{base{sp}, name} }
func NewExternalConstant(sp Span, name string) *ExternalConstant {
	return &ExternalConstant{base{sp}, name}
}
func NewThisInvocation(sp Span) *ThisInvocation   { return &ThisInvocation{base{sp}} }
func NewIndexInvocation(sp Span) *IndexInvocation { return &IndexInvocation{base{sp}} }
func NewTotalInvocation(sp Span) *TotalInvocation { return &TotalInvocation{base{sp}} }
func NewFunctionCall(sp Span, name string, args []Expr) *FunctionCall {
	return &FunctionCall{base{sp}, name, args}
}
func NewInvocation(sp Span, b, m Expr) *Invocation { return &Invocation{base{sp}, b, m} }
func NewIndexer(sp Span, b, i Expr) *Indexer        { return &Indexer{base{sp}, b, i} }
func NewPolarity(sp Span, op string, operand Expr) *Polarity {
	return &Polarity{base{sp}, op, operand}
}
func NewBinary(sp Span, op string, l, r Expr) *Binary { return &Binary{base{sp}, op, l, r} }
func NewTypeExpr(sp Span, op string, operand Expr, typeName string) *TypeExpr {
	return &TypeExpr{base{sp}, op, operand, typeName}
}

// TypeName renders an Expr that denotes a type specifier (a dotted chain of
// identifiers, optionally namespaced: `FHIR.Patient`, `System.String`) back
// to its dotted string form. Returns "" if expr is not a valid type
// specifier shape.
func TypeName(e Expr) string {
	switch n := e.(type) {
	case *Identifier:
		return n.Name
	case *Invocation:
		base := TypeName(n.Base)
		if base == "" {
			return ""
		}
		member, ok := n.Member.(*Identifier)
		if !ok {
			return ""
		}
		return base + "." + member.Name
	default:
		return ""
	}
}
